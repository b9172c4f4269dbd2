package polyfill

import (
	"testing"

	"github.com/hexbound/workerboot/scope"
)

func TestInstall_DefinesPrimaryName(t *testing.T) {
	s := scope.New(scope.Options{})

	if Installed(s) {
		t.Fatal("fresh scope should not have the stand-in")
	}

	Install(s)

	if !s.Has(PrimaryName) {
		t.Error("primary name not defined after Install")
	}
	if !Installed(s) {
		t.Error("Installed returned false after Install")
	}

	v, ok := s.Lookup(PrimaryName)
	if !ok {
		t.Fatal("Lookup failed for installed stand-in")
	}
	stub, ok := v.(*Stub)
	if !ok {
		t.Fatalf("global is %T, want *Stub", v)
	}
	if stub.Name != PrimaryName {
		t.Errorf("stub name = %q", stub.Name)
	}
}

func TestInstall_IgnoresAlternateName(t *testing.T) {
	s := scope.New(scope.Options{})
	Install(s)

	if s.Has(AlternateName) {
		t.Error("alternate vendor name should not be installed")
	}
}

func TestInstall_Idempotent(t *testing.T) {
	s := scope.New(scope.Options{})
	Install(s)
	Install(s)

	if len(s.GlobalNames()) != 1 {
		t.Errorf("globals = %v, want exactly one entry", s.GlobalNames())
	}
}
