package challenge

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"

	// DefaultDriver 是未配置 driver 时使用的存储，配置默认值也引用它。
	DefaultDriver = DriverRedis
)

// Dependencies 是部分驱动需要的外部句柄。
type Dependencies struct {
	SQLiteDB *gorm.DB
}

type builder func(cfg Config, deps Dependencies) (Store, error)

var builders = map[string]builder{
	DriverMemory: func(cfg Config, _ Dependencies) (Store, error) {
		return NewMemory(cfg), nil
	},
	DriverSQLite: func(cfg Config, deps Dependencies) (Store, error) {
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("challenge driver %q requires a database handle", DriverSQLite)
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	},
	DriverRedis: func(cfg Config, _ Dependencies) (Store, error) {
		return NewRedis(cfg)
	},
}

// ResolveDriver normalizes a configured driver name; blank means DefaultDriver.
func ResolveDriver(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultDriver
	}
	return name
}

// Supported reports whether New can build the named driver.
func Supported(name string) bool {
	_, ok := builders[ResolveDriver(name)]
	return ok
}

// Drivers lists the registered driver names in sorted order.
func Drivers() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the store selected by cfg.Driver.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := ResolveDriver(cfg.Driver)
	build, ok := builders[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported challenge driver %q (supported: %s)", cfg.Driver, strings.Join(Drivers(), ", "))
	}
	cfg.Driver = driver
	return build(cfg, deps)
}
