package migrations

// DialectTemplate is used as the templating control for differing SQL syntax between our supported databases
type DialectTemplate struct {
	IntegerPrimaryKey string
	Timestamp         string
}

// MigrationSet provides a set of migrations that can be applied to a database.
type MigrationSet []MigrationData

// MigrationData provides the data for a single migration, including Up and Down SQL.
// Templated values are supported and will be substituted for database-specific values
// before the migrations are applied.
type MigrationData struct {
	SequenceNumber int64
	Name           string
	UpSQL          string
	DownSQL        string
}

// RunwayMigrations is the set of migrations to set up the run history database.
var RunwayMigrations = MigrationSet{
	{
		SequenceNumber: 1,
		Name:           "create_runs",
		UpSQL: `CREATE TABLE IF NOT EXISTS runs
				(
					run_id {{ .IntegerPrimaryKey }},
					run_created_at {{ .Timestamp }} NOT NULL,
					run_finished_at {{ .Timestamp }},
					run_manifest_fingerprint text NOT NULL,
					run_requested text NOT NULL,
					run_status text NOT NULL,
					run_error text
				);
				CREATE INDEX IF NOT EXISTS runs_created_at_desc_index ON runs(run_created_at DESC);`,
		DownSQL: `DROP INDEX runs_created_at_desc_index;
				  DROP TABLE runs;`,
	},
	{
		SequenceNumber: 2,
		Name:           "create_env_results",
		UpSQL: `CREATE TABLE IF NOT EXISTS env_results
				(
					env_result_id {{ .IntegerPrimaryKey }},
					env_result_run_id integer NOT NULL REFERENCES runs (run_id) ON UPDATE NO ACTION ON DELETE CASCADE,
					env_result_name text NOT NULL,
					env_result_status text NOT NULL,
					env_result_error text,
					env_result_started_at {{ .Timestamp }} NOT NULL,
					env_result_finished_at {{ .Timestamp }}
				);
				CREATE INDEX IF NOT EXISTS env_results_run_id_index ON env_results(env_result_run_id);
				CREATE INDEX IF NOT EXISTS env_results_name_index ON env_results(env_result_name);`,
		DownSQL: `DROP INDEX env_results_name_index;
				  DROP INDEX env_results_run_id_index;
				  DROP TABLE env_results;`,
	},
}
