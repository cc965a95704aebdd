package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	SourcesDir        string
	MenusFile         string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Content helpers
	MenuMaxDepth     int
	RelationMaxDepth int

	// Application metadata
	UserAgent string
	Timezone  string
	LogLevel  string
	Debug     bool
	Version   string
}
