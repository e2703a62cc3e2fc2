package quick

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/filesink/filesink"
)

// config parses configuration strings into a Config.
// Each argument should be in "key=value" format where key matches the
// Config yaml tags. The function handles type conversion for each field.
func config(args ...string) (*filesink.Config, error) {
	cfg := &filesink.Config{}
	for _, arg := range args {
		key, value, err := parseKeyValue(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid config format: %s", arg)
		}

		if err := setValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("config error: %s", err)
		}
	}
	return cfg, nil
}

// parseKeyValue splits a configuration string into key and value parts.
// Input format must be "key=value". Leading and trailing spaces are removed
// from both parts.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid format")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// setValue updates a Config field using reflection. Field matching is
// case-insensitive against the yaml tags. The level field additionally
// accepts the level names.
func setValue(cfg *filesink.Config, key, value string) error {
	key = strings.ToLower(key)

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if tag := strings.Split(field.Tag.Get("yaml"), ",")[0]; tag != key {
			continue
		}
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Int64:
			if key == "level" {
				level, err := parseLevel(value)
				if err != nil {
					return err
				}
				f.SetInt(level)
				return nil
			}
			val, err := strconv.ParseInt(value, 0, 64)
			if err != nil {
				return fmt.Errorf("invalid int64 value for %s: %s", key, value)
			}
			f.SetInt(val)

		case reflect.String:
			if key == "format" {
				f.SetString(strings.ToLower(value))
			} else {
				f.SetString(value)
			}

		default:
			return fmt.Errorf("unsupported config type for %s", key)
		}

		return nil
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// parseLevel converts a level string to the corresponding constant.
func parseLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return filesink.LevelDebug, nil
	case "info":
		return filesink.LevelInfo, nil
	case "warn":
		return filesink.LevelWarn, nil
	case "error":
		return filesink.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", level)
	}
}
