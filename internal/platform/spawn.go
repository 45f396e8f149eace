package platform

import "strings"

// spawnedClient is a top-level window seen while waiting for a view
// process to open its window.
type spawnedClient struct {
	ID    uint32
	PID   int
	Class string
	Title string
}

// matchSpawnedWindow picks the window a freshly spawned view opened. Only
// clients missing from known qualify. A _NET_WM_PID equal to pid wins, then
// a WM_CLASS equal to class, then an exact title.
func matchSpawnedWindow(known map[uint32]bool, clients []spawnedClient, pid int, class, title string) (uint32, bool) {
	var byClass, byTitle uint32
	for _, c := range clients {
		if known[c.ID] {
			continue
		}
		if pid > 0 && c.PID == pid {
			return c.ID, true
		}
		if byClass == 0 && class != "" && strings.EqualFold(c.Class, class) {
			byClass = c.ID
		}
		if byTitle == 0 && title != "" && strings.TrimSpace(c.Title) == title {
			byTitle = c.ID
		}
	}
	if byClass != 0 {
		return byClass, true
	}
	if byTitle != 0 {
		return byTitle, true
	}
	return 0, false
}
