package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.DatabasePath == "" {
		cfg.Store.DatabasePath = "/usr/local/var/soyamu/data/db/items.db"
	}
	if cfg.Store.RetryAttempts == 0 {
		cfg.Store.RetryAttempts = 3
	}
	if cfg.Store.RetryDelaySeconds == 0 {
		cfg.Store.RetryDelaySeconds = 2
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = "/usr/local/var/soyamu/data/snapshots"
	}
	if cfg.Snapshot.EveryNAdds == 0 {
		cfg.Snapshot.EveryNAdds = 10
	}
	if cfg.Embedding.FineTunedModelPath == "" {
		cfg.Embedding.FineTunedModelPath = "/usr/local/var/soyamu/data/models/finetuned-minilm.onnx"
	}
	if cfg.Embedding.BaseModelPath == "" {
		cfg.Embedding.BaseModelPath = "/usr/local/var/soyamu/data/models/paraphrase-multilingual-MiniLM-L12-v2.onnx"
	}
	if cfg.Embedding.RemoteModel == "" {
		cfg.Embedding.RemoteModel = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.VectorWeight == 0 {
		cfg.Search.VectorWeight = 0.70
	}
	if cfg.Search.KeywordWeight == 0 {
		cfg.Search.KeywordWeight = 0.30
	}
	if cfg.Search.CategoryBoost == 0 {
		cfg.Search.CategoryBoost = 1.05
	}
	if cfg.Relations.GraphPath == "" {
		cfg.Relations.GraphPath = "/usr/local/etc/soyamu/relations.yaml"
	}
	if cfg.RL.QTablePath == "" {
		cfg.RL.QTablePath = "/usr/local/var/soyamu/data/models/rl_qtable.json"
	}
	if cfg.RL.SaveEveryN == 0 {
		cfg.RL.SaveEveryN = 20
	}
}
