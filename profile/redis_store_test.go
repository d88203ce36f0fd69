package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func seed(t *testing.T, s *RedisStore, id, name string, role Role, created time.Time) {
	t.Helper()
	err := s.Put(context.Background(), Profile{ID: id, Name: name, Email: id + "@example.com", Role: role, CreatedAt: created})
	if err != nil {
		t.Fatalf("Put(%s): %v", id, err)
	}
}

func TestRedisStoreGetPut(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "cl:")
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	seed(t, s, "u1", "Ada", RoleTeacher, time.Time{})
	p, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "Ada" || p.Role != RoleTeacher {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.CreatedAt.IsZero() || !p.UpdatedAt.Equal(p.CreatedAt) {
		t.Fatalf("expected timestamps stamped, got %+v", p)
	}
}

func TestRedisStorePutRejectsInvalidProfile(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "")

	err := s.Put(context.Background(), Profile{ID: "u1", Name: "Ada", Role: "moderator"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := s.Put(context.Background(), Profile{ID: "u1", Role: RoleStudent}); err == nil {
		t.Fatal("expected missing name to be rejected")
	}
}

func TestRedisStoreListNewestFirstAndFilter(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "cl:")
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, s, "s1", "Sam", RoleStudent, base)
	seed(t, s, "t1", "Tia", RoleTeacher, base.Add(time.Hour))
	seed(t, s, "s2", "Sol", RoleStudent, base.Add(2*time.Hour))
	seed(t, s, "a1", "Ari", RoleAdmin, base.Add(3*time.Hour))

	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a1", "s2", "t1", "s1"}
	if len(all) != len(want) {
		t.Fatalf("expected %d profiles, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}

	students, err := s.List(ctx, ListOptions{Role: RoleStudent, Limit: 1})
	if err != nil {
		t.Fatalf("List students: %v", err)
	}
	if len(students) != 1 || students[0].ID != "s2" {
		t.Fatalf("unexpected students %+v", students)
	}

	counts, err := s.CountByRole(ctx)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[RoleStudent] != 2 || counts[RoleTeacher] != 1 || counts[RoleAdmin] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRedisStoreUpdateRoleAndDelete(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "")
	ctx := context.Background()
	seed(t, s, "u1", "Ada", RoleStudent, time.Now().Add(-time.Hour))

	if err := s.UpdateRole(ctx, "u1", RoleTeacher); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	p, _ := s.Get(ctx, "u1")
	if p.Role != RoleTeacher || !p.UpdatedAt.After(p.CreatedAt) {
		t.Fatalf("unexpected profile after role update %+v", p)
	}

	if err := s.UpdateRole(ctx, "u1", "owner"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := s.UpdateRole(ctx, "ghost", RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	list, _ := s.List(ctx, ListOptions{})
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", list)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb, "")
	mr.Close()

	if _, err := s.Get(context.Background(), "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"student", RoleStudent, true},
		{" Teacher ", RoleTeacher, true},
		{"ADMIN", RoleAdmin, true},
		{"", "", false},
		{"moderator", "", false},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseRole(%q) = %q, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidRole) {
			t.Errorf("ParseRole(%q) expected ErrInvalidRole, got %v", tt.in, err)
		}
	}
}
