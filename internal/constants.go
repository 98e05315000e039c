package internal

const (
	// TimestampLayout names run records and logs. Lexicographic order of
	// formatted timestamps matches chronological order, which the retention
	// logic relies on.
	TimestampLayout = "20060102150405"

	RecordExt = ".json"
	LogExt    = ".log"

	MigrationsDir = "migrations"

	DefaultConfigPath = "nightly.yaml"
)
