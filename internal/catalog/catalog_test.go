package catalog

import "testing"

func TestFilterByType(t *testing.T) {
	c := New()
	c.Add("http://x/a", "Bundle/a", 10, "aa", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/b", "Media/b.ogg", 20, "bb", CheckMD5, ResourceMedia, nil)
	c.Add("http://x/c", "Table/c", 30, "cc", CheckMD5, ResourceTable, nil)

	filtered := c.FilterByType(ResourceBundle, ResourceTable)
	if filtered.Len() != 2 {
		t.Fatalf("FilterByType() returned %d entries, want 2", filtered.Len())
	}
	for i := 0; i < filtered.Len(); i++ {
		if filtered.At(i).ResourceType == ResourceMedia {
			t.Errorf("FilterByType() leaked a media entry")
		}
	}
}

func TestSearchByPathCaseInsensitive(t *testing.T) {
	c := New()
	c.Add("http://x/a", "Table/CharacterExcelTable.bytes", 10, "aa", CheckMD5, ResourceTable, nil)
	c.Add("http://x/b", "Media/voice.ogg", 20, "bb", CheckMD5, ResourceMedia, nil)

	found := c.SearchByPath("characterexcel")
	if found.Len() != 1 {
		t.Fatalf("SearchByPath() returned %d entries, want 1", found.Len())
	}
	if found.At(0).Path != "Table/CharacterExcelTable.bytes" {
		t.Errorf("SearchByPath() returned wrong entry: %q", found.At(0).Path)
	}
}

func TestSortedBySizeDescStable(t *testing.T) {
	c := New()
	c.Add("http://x/a", "a", 10, "", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/b", "b", 30, "", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/c", "c", 10, "", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/d", "d", 20, "", CheckMD5, ResourceBundle, nil)

	c.SortedBySizeDesc()

	want := []string{"b", "d", "a", "c"}
	for i, path := range want {
		if c.At(i).Path != path {
			t.Errorf("SortedBySizeDesc()[%d] = %q, want %q", i, c.At(i).Path, path)
		}
	}
}

func TestDedupLastWriterWins(t *testing.T) {
	c := New()
	c.Add("http://x/a-old", "shared/path", 10, "old", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/other", "shared/other", 5, "unrelated", CheckMD5, ResourceBundle, nil)
	c.Add("http://x/a-new", "shared/path", 99, "new", CheckMD5, ResourceBundle, nil)

	deduped := c.Dedup()
	if deduped.Len() != 2 {
		t.Fatalf("Dedup() returned %d entries, want 2", deduped.Len())
	}

	var got Entry
	for i := 0; i < deduped.Len(); i++ {
		if deduped.At(i).Path == "shared/path" {
			got = deduped.At(i)
		}
	}
	if got.Checksum != "new" {
		t.Errorf("Dedup() kept %q, want the last writer (checksum %q)", got.Checksum, "new")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := New()
	c.Add("http://x/a", "a", 10, "", CheckMD5, ResourceBundle, nil)

	clone := c.Clone()
	clone.Add("http://x/b", "b", 20, "", CheckMD5, ResourceBundle, nil)

	if c.Len() != 1 {
		t.Errorf("Clone() mutation leaked back into original: Len() = %d, want 1", c.Len())
	}
}
