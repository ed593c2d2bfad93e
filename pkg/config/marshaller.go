package config

import "github.com/goccy/go-yaml"

func UnmarshalClientConfig(data []byte) (*Client, error) {
	var cfg Client
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.FillDefault()
	return &cfg, nil
}

func MarshalClientConfig(cfg *Client) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func UnmarshalServiceConfig(data []byte) (*Service, error) {
	var cfg Service
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Mysql.FillDefault()
	return &cfg, nil
}

func MarshalServiceConfig(cfg *Service) ([]byte, error) {
	return yaml.Marshal(cfg)
}
