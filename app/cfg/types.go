package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesFile    string
	Port           string
	BaseUrl        string
	APIAccessKey   string
	IngestInterval int
	FetchTimeout   int

	// Ingestion credentials
	YouTubeAPIKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
