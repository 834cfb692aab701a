package configuration

func Default() Configuration {
	return Configuration{
		Filename:          "data/docfile.json",
		AutoSave:          true,
		FlushOnDisconnect: true,
		Indent:            2,
		LineWidth:         120,
		NoRefs:            true,
		HttpAddr:          "127.0.0.1:8080",
		EnableCompression: true,
		LogLevel:          "info",
	}
}
