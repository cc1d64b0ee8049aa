/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"testing"

	"github.com/zalando/go-keyring"
)

// fakeTokenStore keeps tokens in memory so tests never touch the OS keyring.
type fakeTokenStore struct {
	values map[string]string
}

func (f *fakeTokenStore) key(service, key string) string { return service + "/" + key }

func (f *fakeTokenStore) Get(service, key string) (string, error) {
	v, ok := f.values[f.key(service, key)]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (f *fakeTokenStore) Set(service, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[f.key(service, key)] = value
	return nil
}

func (f *fakeTokenStore) Delete(service, key string) error {
	if _, ok := f.values[f.key(service, key)]; !ok {
		return keyring.ErrNotFound
	}
	delete(f.values, f.key(service, key))
	return nil
}

func useFakeTokenStore(t *testing.T) *fakeTokenStore {
	t.Helper()
	prev := tokenStore
	fake := &fakeTokenStore{}
	tokenStore = fake
	t.Cleanup(func() { tokenStore = prev })
	return fake
}

func setenv(t *testing.T, key, val string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, val); err != nil {
		t.Fatalf("setenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Editor.AutosaveSeconds != 30 {
		t.Fatalf("autosave default = %d", cfg.Editor.AutosaveSeconds)
	}
	if cfg.Editor.UndoDepth != 50 {
		t.Fatalf("undo depth default = %d", cfg.Editor.UndoDepth)
	}
	if cfg.Editor.PageSize != "a4" {
		t.Fatalf("page size default = %q", cfg.Editor.PageSize)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080" || cfg.Backend.TimeoutMs != 15000 {
		t.Fatalf("backend defaults = %+v", cfg.Backend)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry must default off")
	}
}

func TestEnvOverrides(t *testing.T) {
	setenv(t, EnvBackendURL, "https://scripts.example.com")
	setenv(t, EnvBackendTimeoutMs, "2500")
	setenv(t, EnvTelemetryOptIn, "yes")
	setenv(t, EnvAutosaveSeconds, "5")
	setenv(t, EnvLogLevel, "DEBUG")
	setenv(t, EnvLogFormat, "JSON")
	setenv(t, EnvLogSource, "1")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Backend.BaseURL != "https://scripts.example.com" {
		t.Fatalf("base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutMs != 2500 {
		t.Fatalf("timeout = %d", cfg.Backend.TimeoutMs)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry opt-in not applied")
	}
	if cfg.Editor.AutosaveSeconds != 5 {
		t.Fatalf("autosave = %d", cfg.Editor.AutosaveSeconds)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || !cfg.Logging.Source {
		t.Fatalf("logging overrides = %+v", cfg.Logging)
	}
}

func TestEnvOverridesIgnoreInvalidNumbers(t *testing.T) {
	setenv(t, EnvBackendTimeoutMs, "soon")
	setenv(t, EnvAutosaveSeconds, "-3")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Backend.TimeoutMs != 15000 {
		t.Fatalf("bad timeout should keep default, got %d", cfg.Backend.TimeoutMs)
	}
	if cfg.Editor.AutosaveSeconds != 30 {
		t.Fatalf("non-positive autosave should keep default, got %d", cfg.Editor.AutosaveSeconds)
	}
}

func TestMergeInto(t *testing.T) {
	dst := Defaults()
	src := AppConfig{
		General: GeneralConfig{TelemetryOptIn: true, EnableServer: true},
		Editor:  EditorConfig{AutosaveSeconds: 60, PageSize: " B5 "},
		Backend: BackendConfig{BaseURL: "https://internal"},
		Logging: LoggingConfig{Level: "WARN", File: "/var/log/gsw.log"},
	}
	mergeInto(&dst, &src)

	if !dst.General.TelemetryOptIn || !dst.General.EnableServer {
		t.Fatalf("general booleans not copied: %+v", dst.General)
	}
	if dst.Editor.AutosaveSeconds != 60 {
		t.Fatalf("autosave = %d", dst.Editor.AutosaveSeconds)
	}
	if dst.Editor.PageSize != "b5" {
		t.Fatalf("page size = %q, want normalized b5", dst.Editor.PageSize)
	}
	if dst.Editor.UndoDepth != 50 {
		t.Fatalf("zero src field must keep default, got %d", dst.Editor.UndoDepth)
	}
	if dst.Backend.BaseURL != "https://internal" {
		t.Fatalf("base url = %q", dst.Backend.BaseURL)
	}
	if dst.Backend.TimeoutMs != 15000 {
		t.Fatalf("timeout must keep default, got %d", dst.Backend.TimeoutMs)
	}
	if dst.Logging.Level != "warn" || dst.Logging.File != "/var/log/gsw.log" {
		t.Fatalf("logging merge = %+v", dst.Logging)
	}
	if dst.Logging.Format != "console" {
		t.Fatalf("empty src format must keep default, got %q", dst.Logging.Format)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	setenv(t, EnvBackendURL, "https://scripts.example.com")
	if name, ok := EnvOverrideFor("backend.base_url"); !ok || name != EnvBackendURL {
		t.Fatalf("EnvOverrideFor backend.base_url = %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("editor.autosave_seconds"); ok {
		t.Fatalf("unset env var must not report an override")
	}
	if _, ok := EnvOverrideFor("no.such.key"); ok {
		t.Fatalf("unknown key must not report an override")
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	fake := useFakeTokenStore(t)

	if err := fake.Set(keyringService, keyringToken, "tok-1"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	got, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil || got != "tok-1" {
		t.Fatalf("get token = %q err=%v", got, err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if _, err := tokenStore.Get(keyringService, keyringToken); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("token should be gone, err=%v", err)
	}
	// Clearing an absent token is not an error.
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken on empty store: %v", err)
	}
}
