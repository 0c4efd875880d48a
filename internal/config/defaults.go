package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/teachable/data/db/sessions.db"
	}
	if cfg.Storage.HeadsDir == "" {
		cfg.Storage.HeadsDir = "/usr/local/var/teachable/data/heads"
	}
	if cfg.Storage.HeadStore == "" {
		cfg.Storage.HeadStore = "file"
	}
	if cfg.Storage.S3.Prefix == "" {
		cfg.Storage.S3.Prefix = "heads/"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/teachable/data/models/mobilenet_v3_small.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.InputSize == 0 {
		cfg.Embedding.InputSize = 224
	}
	if cfg.Embedding.InputName == "" {
		cfg.Embedding.InputName = "input"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "output"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 256
	}
	if cfg.Classifier.HeadType == "" {
		cfg.Classifier.HeadType = "centroid"
	}
	if cfg.Classifier.DimensionPolicy == "" {
		cfg.Classifier.DimensionPolicy = "reset"
	}
	if cfg.Classifier.LinearScale == 0 {
		cfg.Classifier.LinearScale = 10
	}
	// SmoothingWindow and StrictDimensions stay nil when unset so that an
	// explicit 0 / false survives; see the *OrDefault accessors.
}
