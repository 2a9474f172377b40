package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/sigflag/internal/migrate"
)

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "behavior.interval_seconds -> behavior.interval_ms",
		Upgrade:     upgradeIntervalMS,
	})
}

// upgradeIntervalMS rewrites the v1 whole-second interval into milliseconds.
func upgradeIntervalMS(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	if behavior, ok := doc["behavior"].(map[string]any); ok {
		if v, ok := behavior["interval_seconds"]; ok {
			secs, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("behavior.interval_seconds: expected integer, got %T", v)
			}
			if secs > MaxIntervalMS/1000 {
				return nil, fmt.Errorf("behavior.interval_seconds: %d is out of range (max %d)", secs, MaxIntervalMS/1000)
			}
			behavior["interval_ms"] = secs * 1000
			delete(behavior, "interval_seconds")
		}
	}
	doc["version"] = int64(2)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}
