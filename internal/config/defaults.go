package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Photos.Dir == "" {
		cfg.Photos.Dir = "./images"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/photos.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/indices/bleve"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "clip"
	}
	if cfg.Embedding.ImageModelPath == "" {
		cfg.Embedding.ImageModelPath = "./models/clip-vit-b-32-visual.onnx"
	}
	if cfg.Embedding.TextModelPath == "" {
		cfg.Embedding.TextModelPath = "./models/clip-vit-b-32-textual.onnx"
	}
	if cfg.Embedding.MergesPath == "" {
		cfg.Embedding.MergesPath = "./models/bpe_simple_vocab_16e6.txt"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	// The tokenizer needs room for the start and end markers.
	if cfg.Embedding.ContextLength < 2 {
		cfg.Embedding.ContextLength = 77
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.QdrantAddr == "" {
		cfg.Vector.QdrantAddr = "localhost:6334"
	}
	if cfg.Vector.QdrantCollection == "" {
		cfg.Vector.QdrantCollection = "personal_photos"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 3
	}
}
