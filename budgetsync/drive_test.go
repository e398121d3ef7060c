package budgetsync

import "testing"

func TestExtractRevisionNumber(t *testing.T) {
	cases := []struct {
		name     string
		expected int
	}{
		{"PR01724-rev01.pdf", 1},
		{"PR01724 rev.02.pdf", 2},
		{"PR01724 rev 3.pdf", 3},
		{"PR01724_v4.pdf", 4},
		{"PR01724_r2.pdf", 2},
		{"PR01724-REV12.pdf", 12},
		{"PR01724.pdf", 0},
		{"orcamento sem marcador.pdf", 0},
	}
	for _, tc := range cases {
		if got := ExtractRevisionNumber(tc.name); got != tc.expected {
			t.Fatalf("ExtractRevisionNumber(%q) expected %d, got %d", tc.name, tc.expected, got)
		}
	}
}

func TestLatestRevisionPerPR_HighestWins(t *testing.T) {
	files := []DriveFile{
		{ID: "a", Name: "PR01724-rev01.pdf"},
		{ID: "b", Name: "PR01724-rev03.pdf"},
		{ID: "c", Name: "pr 1724 rev02.pdf"},
		{ID: "d", Name: "PR01800.pdf"},
	}

	latest := LatestRevisionPerPR(files)

	if len(latest) != 2 {
		t.Fatalf("expected 2 representatives, got %d", len(latest))
	}
	if latest[0].ID != "b" || latest[0].PRCode != "PR01724" || latest[0].Revision != 3 {
		t.Fatalf("expected rev03 for PR01724, got %+v", latest[0])
	}
	if latest[1].ID != "d" || latest[1].PRCode != "PR01800" || latest[1].Revision != 0 {
		t.Fatalf("expected markerless PR01800 at revision 0, got %+v", latest[1])
	}
}

func TestLatestRevisionPerPR_TieKeepsFirstSeen(t *testing.T) {
	files := []DriveFile{
		{ID: "first", Name: "PR01724-rev02.pdf"},
		{ID: "second", Name: "PR 01724 rev02 copia.pdf"},
	}
	latest := LatestRevisionPerPR(files)
	if len(latest) != 1 || latest[0].ID != "first" {
		t.Fatalf("tie must keep the first file seen, got %+v", latest)
	}
}

func TestLatestRevisionPerPR_DropsFilesWithoutPRCode(t *testing.T) {
	files := []DriveFile{
		{ID: "x", Name: "notas da reunião.pdf"},
		{ID: "y", Name: "PR123 fora do padrão.pdf"},
	}
	if latest := LatestRevisionPerPR(files); len(latest) != 0 {
		t.Fatalf("files without a PR code must be dropped, got %+v", latest)
	}
}
