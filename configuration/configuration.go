package configuration

type Configuration struct {
	Filename          string `usage:"snapshot file path"`
	Format            string `usage:"snapshot format [json|yaml], inferred from the file extension when empty"`
	AutoSave          bool   `usage:"write the snapshot after every change, otherwise only on flush"`
	FlushOnDisconnect bool   `usage:"write the snapshot on shutdown"`
	LenientConnect    bool   `usage:"start empty when the snapshot cannot be parsed"`
	Indent            int    `usage:"YAML indentation"`
	LineWidth         int    `usage:"YAML line width"`
	NoRefs            bool   `usage:"YAML without anchors nor aliases"`
	SortKeys          bool   `usage:"YAML with sorted keys"`
	HttpAddr          string `usage:"HTTP address"`
	EnableCompression bool   `usage:"gzip responses when the client accepts it"`
	LogLevel          string `usage:"log level [debug|info|warn|error]"`
	LogPretty         bool   `usage:"human friendly logs"`
	Version           bool   `usage:"show version and exit"`
	ShowConfig        bool   `usage:"print config"`
}
