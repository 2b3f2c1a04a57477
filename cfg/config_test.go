package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GALERAINIT_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	// An explicitly configured but missing file is an error.
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for explicitly configured missing config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MYSQL_DATABASE", "app")
	t.Setenv("MYSQL_USER", "svc")
	t.Setenv("MYSQL_PASSWORD", "pw")
	t.Setenv("MYSQL_ROOT_PASSWORD", "rootpw")
	t.Setenv("MYSQL_ONETIME_PASSWORD", "1")
	t.Setenv("MYSQL_INITDB_SKIP_TZINFO", "yes")
	t.Setenv("GALERA_CLUSTER_ADDRESS", "gcomm://node1:4567, node2:4567")
	t.Setenv("GALERAINIT_VERBOSE", "true")

	config, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Database.Name != "app" || config.Database.User != "svc" || config.Database.Password != "pw" {
		t.Errorf("Database settings not applied: %+v", config.Database)
	}
	if config.Root.Password != "rootpw" || !config.Root.ExpirePassword {
		t.Errorf("Root settings not applied: %+v", config.Root)
	}
	if config.Timezone.LoadTzdata {
		t.Error("Expected tzdata load to be disabled")
	}
	want := []string{"node1:4567", "node2:4567"}
	if !reflect.DeepEqual(config.Cluster.JoinAddresses, want) {
		t.Errorf("Expected join addresses %v, got %v", want, config.Cluster.JoinAddresses)
	}
	if !config.Logging.Verbose {
		t.Error("Expected verbose logging")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galerainit.toml")
	content := `
[database]
name = "filedb"

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GALERAINIT_CONFIG", path)
	// Environment still wins over the file.
	t.Setenv("MYSQL_DATABASE", "envdb")

	config, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if config.Database.Name != "envdb" {
		t.Errorf("Expected env to win over file, got %q", config.Database.Name)
	}
	if config.Logging.Format != "json" {
		t.Errorf("Expected file format json, got %q", config.Logging.Format)
	}
}

func TestValidate_RootConflicts(t *testing.T) {
	tests := []struct {
		name string
		root RootConfiguration
	}{
		{"empty+literal", RootConfiguration{AllowEmpty: true, Password: "x"}},
		{"empty+random", RootConfiguration{AllowEmpty: true, RandomPassword: true}},
		{"random+literal", RootConfiguration{RandomPassword: true, Password: "x"}},
	}

	for _, tc := range tests {
		config := Defaults()
		config.Root = tc.root
		if err := Validate(config); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidate_InvalidFormat(t *testing.T) {
	config := Defaults()
	config.Logging.Format = "xml"
	if err := Validate(config); err == nil {
		t.Error("Expected error for invalid logging format")
	}
}

func TestValidate_InvalidPattern(t *testing.T) {
	config := Defaults()
	config.Init.FilePattern = "[unterminated"
	if err := Validate(config); err == nil {
		t.Error("Expected error for invalid init file pattern")
	}
}

func TestSplitAddresses(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"node1", []string{"node1"}},
		{"gcomm://a:4567,b:4567", []string{"a:4567", "b:4567"}},
		{" a , , b ", []string{"a", "b"}},
	}

	for _, tc := range tests {
		got := splitAddresses(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitAddresses(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
