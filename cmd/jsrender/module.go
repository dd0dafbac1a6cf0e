package main

import (
	"context"

	"github.com/spf13/viper"
	"github.com/yRedskull/jsrender"
	"github.com/yRedskull/jsrender/excjs"
	"github.com/yRedskull/jsrender/internal/confutil"
	"github.com/yRedskull/jsrender/tpl"
	"github.com/yRedskull/jsrender/webassets"
	"go.uber.org/zap"
)

// buildModule wires renderer, asset manager and javascript module from the
// "tpl", "webassets" and "js" sections of the configuration.
func buildModule(v *viper.Viper, log *zap.Logger) (*jsrender.Module, error) {
	v.SetDefault("tpl.ttl", "1m")
	v.SetDefault("tpl.cache_size", 128)
	v.SetDefault("webassets.cache_size", 256)

	renderer, err := tpl.New(tpl.Options{
		RootDir:   v.GetString("tpl.rootdir"),
		CacheDir:  v.GetString("tpl.cachedir"),
		Pages:     v.GetString("tpl.pages"),
		Version:   v.GetString("tpl.version"),
		TTL:       v.GetDuration("tpl.ttl"),
		CacheSize: v.GetInt("tpl.cache_size"),
		Logger:    log.Named("tpl"),
	})
	if err != nil {
		return nil, err
	}
	assets, err := webassets.New(webassets.Config{
		CacheDir:   v.GetString("webassets.cachedir"),
		Versioning: v.GetBool("webassets.versioning"),
		CacheSize:  v.GetInt("webassets.cache_size"),
		Compress:   v.GetBool("webassets.compress"),
	}, log.Named("webassets"))
	if err != nil {
		return nil, err
	}

	conf := confutil.Flatten(v.GetStringMap("js"))
	m, err := jsrender.Init(conf, assets, renderer, jsrender.WithLogger(log))
	if err != nil {
		return nil, err
	}
	// hidden so that js() without arguments leaves it out
	err = m.Virtual("lib/excjs/_excformat.js", func(context.Context) (string, error) {
		return excjs.FormatterJS(), nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
