package config

import (
	"testing"
	"time"
)

func TestFromViper_Defaults(t *testing.T) {
	v := newViper()
	v.Set("docstore", "memory")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected development JWT secret outside prod")
	}
	if cfg.JWTTTL != 72*time.Hour {
		t.Errorf("JWTTTL = %v, want 72h", cfg.JWTTTL)
	}
	if cfg.SessionTick != time.Second || cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("session timings = %v/%v", cfg.SessionTick, cfg.SessionIdleTTL)
	}
	if cfg.PoolCacheTTL != 10*time.Minute {
		t.Errorf("PoolCacheTTL = %v, want 10m", cfg.PoolCacheTTL)
	}
}

func TestFromViper_Validation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]interface{}
		wantErr bool
	}{
		{"unknown docstore", map[string]interface{}{"docstore": "sqlite"}, true},
		{"prod without secret", map[string]interface{}{"docstore": "memory", "env": "prod", "jwt_secret": ""}, true},
		{"prod with secret", map[string]interface{}{"docstore": "memory", "env": "prod", "jwt_secret": "s3cret"}, false},
		{"zero tick", map[string]interface{}{"docstore": "memory", "session_tick": "0s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := FromViper(v)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a.test, ,http://b.test ")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("splitList = %v", got)
	}
}
