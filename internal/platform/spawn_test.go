package platform

import "testing"

func TestMatchSpawnedWindow(t *testing.T) {
	existing := []spawnedClient{
		{ID: 10, PID: 500, Class: "firefox", Title: "Calculator - Firefox"},
		{ID: 11, PID: 600, Class: "launcher", Title: "Calculator"},
	}
	known := map[uint32]bool{10: true, 11: true}
	class := ViewClass(PluginLabel)

	tests := []struct {
		name    string
		clients []spawnedClient
		want    uint32
		wantOK  bool
	}{
		{
			name:    "pre-existing windows never match",
			clients: existing,
		},
		{
			name:    "substring title does not match",
			clients: append(existing, spawnedClient{ID: 12, PID: 700, Title: "Calculator - Notes"}),
		},
		{
			name:    "pid wins over class and title",
			clients: append(existing, spawnedClient{ID: 13, Title: "Calculator"}, spawnedClient{ID: 14, Class: class}, spawnedClient{ID: 15, PID: 4242}),
			want:    15,
			wantOK:  true,
		},
		{
			name:    "class wins over title",
			clients: append(existing, spawnedClient{ID: 13, Title: "Calculator"}, spawnedClient{ID: 14, Class: class}),
			want:    14,
			wantOK:  true,
		},
		{
			name:    "exact title among new clients",
			clients: append(existing, spawnedClient{ID: 13, PID: 9, Title: "Calculator"}),
			want:    13,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchSpawnedWindow(known, tt.clients, 4242, class, "Calculator")
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("matchSpawnedWindow() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
