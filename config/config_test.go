package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/casper-node/node/types"
)

func TestNodeRoleConfiguration_Validate(t *testing.T) {
	pk := &types.ValidatorIdentity{}

	cases := []struct {
		name    string
		cfg     NodeRoleConfiguration
		wantErr bool
	}{
		{
			name:    "approve-genesis without identity is rejected",
			cfg:     NodeRoleConfiguration{Role: RoleApproveGenesis, ShardID: "root", RequiredSigs: 1},
			wantErr: true,
		},
		{
			name:    "approve-genesis with identity is accepted",
			cfg:     NodeRoleConfiguration{Role: RoleApproveGenesis, ShardID: "root", RequiredSigs: 1, ValidatorIdentity: pk},
			wantErr: false,
		},
		{
			name:    "zero requiredSigs is rejected",
			cfg:     NodeRoleConfiguration{Role: RoleDefault, ShardID: "root", RequiredSigs: 0},
			wantErr: true,
		},
		{
			name:    "empty shardId is rejected",
			cfg:     NodeRoleConfiguration{Role: RoleDefault, ShardID: "", RequiredSigs: 1},
			wantErr: true,
		},
		{
			name:    "well-formed default role is accepted",
			cfg:     NodeRoleConfiguration{Role: RoleDefault, ShardID: "root", RequiredSigs: 1},
			wantErr: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
		})
	}
}

func TestRole_String(t *testing.T) {
	cases := map[Role]string{
		RoleDefault:        "default",
		RoleApproveGenesis: "approve-genesis",
		RoleStandalone:     "standalone",
	}
	for role, want := range cases {
		if got := role.String(); got != want {
			t.Fatalf("Role(%d).String() = %q, want %q", role, got, want)
		}
	}
}

func TestLoadBootnodes_LegacyFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.yaml")
	writeFile(t, path, `
- multiaddr: "/ip4/127.0.0.1/tcp/4001/p2p/QmA"
- multiaddr: "/ip4/127.0.0.1/tcp/4002/p2p/QmB"
`)

	got, err := LoadBootnodes(path)
	if err != nil {
		t.Fatalf("LoadBootnodes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bootnodes, got %d", len(got))
	}
	if got[0] != "/ip4/127.0.0.1/tcp/4001/p2p/QmA" {
		t.Fatalf("unexpected first entry: %q", got[0])
	}
}

func TestLoadBootnodes_PlainStringFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.yaml")
	writeFile(t, path, `
- "enr:-IW4QAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
- "/ip4/127.0.0.1/tcp/4003/p2p/QmC"
`)

	got, err := LoadBootnodes(path)
	if err != nil {
		t.Fatalf("LoadBootnodes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestLoadBootnodes_MissingFile(t *testing.T) {
	if _, err := LoadBootnodes(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
