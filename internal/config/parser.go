package config

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ParseConfig 解析 JSON 格式的配置
func ParseConfig(byteConfig []byte) (*Config, error) {
	v := viper.New()
	if err := ReadDefaults(v, byteConfig); err != nil {
		return nil, err
	}
	return Load(v)
}

// ReadDefaults 把 JSON 格式的默认配置读入 v, 之后的配置文件/环境变量/命令行在其上叠加
func ReadDefaults(v *viper.Viper, byteConfig []byte) error {
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(byteConfig)); err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	return nil
}

// Load 从已合并(默认值/配置文件/环境变量/命令行)的 viper 实例中反序列化配置
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("反序列化配置失败: %w", err)
	}
	if cfg.Browser.UserDataDir != "" {
		expanded, err := homedir.Expand(cfg.Browser.UserDataDir)
		if err != nil {
			return nil, err
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return nil, err
		}
		cfg.Browser.UserDataDir = absPath
	}
	return &cfg, nil
}
