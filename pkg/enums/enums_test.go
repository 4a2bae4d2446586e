package enums

import "testing"

func TestMemberRoleGrantsAccess(t *testing.T) {
	granting := map[MemberRole]bool{
		MemberRoleLeader:     true,
		MemberRoleShepherd:   true,
		MemberRoleMember:     false,
		MemberRoleNewConvert: false,
		MemberRoleGuest:      false,
	}
	for role, want := range granting {
		if role.GrantsAccess() != want {
			t.Fatalf("role %s: expected GrantsAccess=%v", role, want)
		}
	}
}

func TestAccountRoleForMember(t *testing.T) {
	if got, ok := AccountRoleForMember(MemberRoleLeader); !ok || got != AccountRoleLeader {
		t.Fatalf("leader should map to account leader, got %s ok=%v", got, ok)
	}
	if got, ok := AccountRoleForMember(MemberRoleShepherd); !ok || got != AccountRoleShepherd {
		t.Fatalf("shepherd should map to account shepherd, got %s ok=%v", got, ok)
	}
	if _, ok := AccountRoleForMember(MemberRoleGuest); ok {
		t.Fatal("guest must not map to an account role")
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseMemberRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := ParseMemberStatus("deleted"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := ParseAttendanceStatus("late"); err == nil {
		t.Fatal("expected error for unknown attendance status")
	}
	if _, err := ParseOutboxEventType("order_paid"); err == nil {
		t.Fatal("expected error for unknown outbox event type")
	}
}

func TestParseRoundTrips(t *testing.T) {
	for _, role := range validMemberRoles {
		got, err := ParseMemberRole(role.String())
		if err != nil || got != role {
			t.Fatalf("round trip failed for %s: %v", role, err)
		}
	}
	for _, status := range validAttendanceStatuses {
		got, err := ParseAttendanceStatus(status.String())
		if err != nil || got != status {
			t.Fatalf("round trip failed for %s: %v", status, err)
		}
	}
}
