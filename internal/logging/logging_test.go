package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"

	"hikyaku/internal/config"
)

func TestNewWithOutput_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, err := NewWithOutput(config.LogConfig{Level: "warn", Format: "json"}, buf)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	logger.Info("出力されない")
	logger.WithField("conn_id", "abc").Warn("出力される")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSONとして解析できません: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "出力される" {
		t.Errorf("msg: got %v", entry["msg"])
	}
	if entry["conn_id"] != "abc" {
		t.Errorf("conn_id: got %v", entry["conn_id"])
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v, want warn", logger.GetLevel())
	}
}

func TestNewWithOutput_Errors(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.LogConfig
	}{
		{"不明なレベル", config.LogConfig{Level: "loud", Format: "text"}},
		{"不明な形式", config.LogConfig{Level: "info", Format: "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewWithOutput(tc.cfg, new(bytes.Buffer)); err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
		})
	}
}
