package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

func campRef() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestReadScopePerRole(t *testing.T) {
	camp := campRef()

	cases := []struct {
		name   string
		caller Caller
		want   Scope
	}{
		{"admin is unscoped", Caller{Role: enums.AccountRoleAdmin}, ScopeAll},
		{"leader reads own camp", Caller{Role: enums.AccountRoleLeader, CampID: camp}, ScopeCamp},
		{"shepherd reads own camp", Caller{Role: enums.AccountRoleShepherd, CampID: camp}, ScopeCamp},
		{"leader without camp sees nothing", Caller{Role: enums.AccountRoleLeader}, ScopeNone},
		{"shepherd without camp sees nothing", Caller{Role: enums.AccountRoleShepherd}, ScopeNone},
		{"unknown role sees nothing", Caller{Role: enums.AccountRole("guest")}, ScopeNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReadScope(tc.caller); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestWriteScopePerRole(t *testing.T) {
	camp := campRef()

	if got := WriteScope(Caller{Role: enums.AccountRoleAdmin}); got != ScopeAll {
		t.Fatalf("admin write scope = %s", got)
	}
	if got := WriteScope(Caller{Role: enums.AccountRoleLeader, CampID: camp}); got != ScopeCamp {
		t.Fatalf("leader write scope = %s", got)
	}
	if got := WriteScope(Caller{Role: enums.AccountRoleShepherd, CampID: camp}); got != ScopeNone {
		t.Fatalf("shepherd write scope = %s", got)
	}
}

func TestAttendanceWriteScope(t *testing.T) {
	camp := campRef()

	if got := AttendanceWriteScope(Caller{Role: enums.AccountRoleShepherd, CampID: camp}); got != ScopeAssigned {
		t.Fatalf("shepherd attendance scope = %s", got)
	}
	if got := AttendanceWriteScope(Caller{Role: enums.AccountRoleLeader, CampID: camp}); got != ScopeCamp {
		t.Fatalf("leader attendance scope = %s", got)
	}
	if got := AttendanceWriteScope(Caller{Role: enums.AccountRoleAdmin}); got != ScopeAll {
		t.Fatalf("admin attendance scope = %s", got)
	}
}

func TestCampMatches(t *testing.T) {
	campA := campRef()
	campB := campRef()

	admin := Caller{Role: enums.AccountRoleAdmin}
	leaderA := Caller{Role: enums.AccountRoleLeader, CampID: campA}
	leaderNoCamp := Caller{Role: enums.AccountRoleLeader}

	if !CampMatches(admin, campB) {
		t.Fatalf("admin should match any camp")
	}
	if !CampMatches(leaderA, campA) {
		t.Fatalf("leader should match own camp")
	}
	if CampMatches(leaderA, campB) {
		t.Fatalf("leader should not match another camp")
	}
	if !CampMatches(leaderA, nil) {
		t.Fatalf("global rows should be visible to camp roles")
	}
	if CampMatches(leaderNoCamp, campA) {
		t.Fatalf("leader without camp should fail closed")
	}
}

func TestCanManageMembers(t *testing.T) {
	camp := campRef()

	if !CanManageMembers(Caller{Role: enums.AccountRoleAdmin}) {
		t.Fatalf("admin should manage members")
	}
	if !CanManageMembers(Caller{Role: enums.AccountRoleLeader, CampID: camp}) {
		t.Fatalf("leader should manage members")
	}
	if CanManageMembers(Caller{Role: enums.AccountRoleShepherd, CampID: camp}) {
		t.Fatalf("shepherd should not manage members")
	}
}
