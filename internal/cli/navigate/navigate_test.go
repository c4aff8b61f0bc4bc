package navigate

import "testing"

func TestRouter(t *testing.T) {
	r := NewRouter(RouteHome)
	if r.Current() != RouteHome {
		t.Errorf("Current() = %q, want %q", r.Current(), RouteHome)
	}

	var seen []string
	r.OnChange(func(route string) { seen = append(seen, route) })

	r.ToLogin()
	r.ToLogin()
	r.Navigate(RouteHome)

	if r.Current() != RouteHome {
		t.Errorf("Current() = %q, want %q", r.Current(), RouteHome)
	}
	want := []string{RouteLogin, RouteLogin, RouteHome}
	if len(seen) != len(want) {
		t.Fatalf("listener calls = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestFunc(t *testing.T) {
	called := 0
	var n Navigator = Func(func() { called++ })
	n.ToLogin()
	if called != 1 {
		t.Errorf("called = %d, want 1", called)
	}
}
