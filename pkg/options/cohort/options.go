// Package cohort provides cohort data source options.
package cohort

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 队列数据源配置。
type Options struct {
	// Path 数据文件路径（.csv 或 .xlsx）。
	Path string `json:"path" mapstructure:"path"`

	// Format 文件格式（auto, csv, xlsx）。auto 按扩展名判断。
	Format string `json:"format" mapstructure:"format"`

	// Sheet xlsx 工作表名称，为空时取第一个。
	Sheet string `json:"sheet" mapstructure:"sheet"`

	// Workers 批量评估的协程池容量。
	Workers int `json:"workers" mapstructure:"workers"`

	// Watch 数据文件变更时重新加载队列。
	Watch bool `json:"watch" mapstructure:"watch"`

	// WatchDebounce 合并连续文件事件的时间窗口。
	WatchDebounce time.Duration `json:"watch-debounce" mapstructure:"watch-debounce"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Path:          "LengthOfStay.csv",
		Format:        "auto",
		Workers:       16,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// ResolvedFormat 返回实际使用的文件格式。
func (o *Options) ResolvedFormat() string {
	if o.Format != "" && o.Format != "auto" {
		return o.Format
	}
	if strings.EqualFold(filepath.Ext(o.Path), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}

// AddFlags adds flags for cohort options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Path, p+"cohort.path", o.Path, "Cohort data file (.csv or .xlsx).")
	fs.StringVar(&o.Format, p+"cohort.format", o.Format, "Cohort file format (auto, csv, xlsx).")
	fs.StringVar(&o.Sheet, p+"cohort.sheet", o.Sheet, "Worksheet name for xlsx files.")
	fs.IntVar(&o.Workers, p+"cohort.workers", o.Workers, "Worker pool capacity for batch assessment.")
	fs.BoolVar(&o.Watch, p+"cohort.watch", o.Watch, "Reload the cohort when the data file changes.")
	fs.DurationVar(&o.WatchDebounce, p+"cohort.watch-debounce", o.WatchDebounce, "Quiet period before a changed file is reloaded.")
}

// Validate validates the cohort options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("cohort.path is required"))
	}
	switch o.Format {
	case "", "auto", "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("unsupported cohort.format %q", o.Format))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("cohort.workers must be positive"))
	}
	if o.Watch && o.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("cohort.watch-debounce must not be negative"))
	}
	return errs
}
