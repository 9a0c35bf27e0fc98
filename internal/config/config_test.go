package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "croissant")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPort != "3306" || cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.CORSHostSuffixes) != 1 || cfg.CORSHostSuffixes[0] != "vercel.app" {
		t.Fatalf("cors suffixes = %v", cfg.CORSHostSuffixes)
	}
}

func TestLoadValidatesAuthMode(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"firebase without project", map[string]string{"AUTH_MODE": "firebase"}, "FIREBASE_PROJECT_ID"},
		{"jwt without secret", map[string]string{"AUTH_MODE": "jwt"}, "JWT_SECRET"},
		{"unknown mode", map[string]string{"AUTH_MODE": "ldap"}, "unknown AUTH_MODE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
