package config

import (
	"context"
	"reflect"
	"testing"
)

func TestFromContextMissing(t *testing.T) {
	ctx := context.TODO()
	if c := FromContext(ctx); !reflect.DeepEqual(c, DefaultConfig()) {
		t.Errorf("FromContext(ctx) => %v, want default config", c)
	}
}

func TestFromContextRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = "carried"
	ctx := WithContext(context.TODO(), cfg)
	if c := FromContext(ctx); c == nil || !reflect.DeepEqual(c, cfg) {
		t.Errorf("FromContext(ctx) => %v, want %v", c, cfg)
	}
}
