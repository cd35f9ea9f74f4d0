// Package notes provides clinical notes storage options.
package notes

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Backend 类型。
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendGorm  = "gorm"
	BackendMongo = "mongo"
)

// Options 笔记存储配置。
type Options struct {
	// Backend 存储后端（file, redis, gorm, mongo）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Path file 后端的 JSON 文件路径。
	Path string `json:"path" mapstructure:"path"`

	// Driver gorm 后端的数据库驱动（sqlite, postgres, mysql）。
	Driver string `json:"driver" mapstructure:"driver"`

	// DSN gorm 后端的连接串。
	DSN string `json:"-" mapstructure:"dsn"`

	// KeyPrefix redis 后端的 key 前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Collection mongo 后端的集合名称。
	Collection string `json:"collection" mapstructure:"collection"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:    BackendFile,
		Path:       "clinical_notes.json",
		Driver:     "sqlite",
		DSN:        "file:los-insight.db",
		KeyPrefix:  "los-insight:",
		Collection: "clinical_notes",
	}
}

// AddFlags adds flags for notes options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Backend, p+"notes.backend", o.Backend, "Notes storage backend (file, redis, gorm, mongo).")
	fs.StringVar(&o.Path, p+"notes.path", o.Path, "Notes JSON file path (file backend).")
	fs.StringVar(&o.Driver, p+"notes.driver", o.Driver, "Database driver (sqlite, postgres, mysql) for the gorm backend.")
	fs.StringVar(&o.DSN, p+"notes.dsn", o.DSN, "Database DSN for the gorm backend.")
	fs.StringVar(&o.KeyPrefix, p+"notes.key-prefix", o.KeyPrefix, "Key prefix for the redis backend.")
	fs.StringVar(&o.Collection, p+"notes.collection", o.Collection, "Collection name for the mongo backend.")
}

// Validate validates the notes options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendFile:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("notes.path is required for the file backend"))
		}
	case BackendRedis:
	case BackendGorm:
		switch o.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Errorf("unsupported notes.driver %q", o.Driver))
		}
		if o.DSN == "" {
			errs = append(errs, fmt.Errorf("notes.dsn is required for the gorm backend"))
		}
	case BackendMongo:
		if o.Collection == "" {
			errs = append(errs, fmt.Errorf("notes.collection is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported notes.backend %q", o.Backend))
	}
	return errs
}
