package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"perpbot/internal/logger"
)

// ChangeListener 在配置文件变更且重新加载成功后调用。
type ChangeListener func(*Config)

// Watch 监听主配置文件，变更时完整重新加载并回调；加载失败只记录日志，保留旧配置。
func Watch(path string, fn ChangeListener) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config watch requires path")
	}
	if fn == nil {
		return fmt.Errorf("config watch requires listener")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		logger.Infof("config reloaded from %s", evt.Name)
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}
