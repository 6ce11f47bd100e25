package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/transfer"
)

var testCreds = credentials.FileCredential{Name: "personal", AccessKey: "abc", SecretKey: "def", DefaultRegion: "eu-west-1"}

func s3Names(items []S3SelectedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestFlatten_NoChildren(t *testing.T) {
	items := []S3SelectedItem{{Name: "file1"}, {Name: "file2"}}
	assert.Equal(t, []string{"file1", "file2"}, s3Names(Flatten(items)))
}

func TestFlatten_ChildrenFirst(t *testing.T) {
	items := []S3SelectedItem{
		{Name: "single"},
		{Name: "dir", IsDirectory: true, Children: []S3SelectedItem{{Name: "child1"}, {Name: "child2"}}},
	}
	assert.Equal(t, []string{"child1", "child2", "single"}, s3Names(Flatten(items)))
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten([]LocalSelectedItem{}))
}

func TestS3SelectedItem_KeyAndLocalPath(t *testing.T) {
	item := NewS3Object("bucket", "photos/2024/a.jpg", "/downloads", testCreds)
	assert.Equal(t, "a.jpg", item.Name)
	assert.Equal(t, "photos/2024/a.jpg", item.Key())
	assert.Equal(t, filepath.Join("/downloads", "photos", "2024", "a.jpg"), item.LocalPath())

	rootItem := S3SelectedItem{Bucket: "bucket", Name: "top.txt", DestinationDir: "/tmp"}
	assert.Equal(t, "top.txt", rootItem.Key())
}

func TestS3SelectedItem_Prefix(t *testing.T) {
	dir := NewS3Prefix("bucket", "photos/", "/downloads", testCreds)
	assert.True(t, dir.IsDirectory)
	assert.Equal(t, "photos", dir.Name)
	assert.True(t, dir.NeedsListing())

	dir = dir.WithObjects([]string{"photos/", "photos/a.jpg", "photos/b.jpg"})
	assert.False(t, dir.NeedsListing())
	require.Len(t, dir.Children, 2)
	assert.Equal(t, "photos/a.jpg", dir.Children[0].Key())
	assert.Equal(t, testCreds, dir.Children[1].Creds)

	bucket := NewS3Prefix("bucket", "", "/downloads", testCreds)
	assert.True(t, bucket.IsBucket)
	assert.Equal(t, "bucket", bucket.Name)
}

func TestS3SelectedItem_EqualIgnoresState(t *testing.T) {
	a := NewS3Object("bucket", "a.txt", "/x", testCreds)
	b := a
	b.State = transfer.Completed()
	b.JobID = 7
	b.DestinationDir = "/y"
	assert.True(t, a.Equal(b))

	b.Path = "other/a.txt"
	assert.False(t, a.Equal(b))
}

func TestSetState_FindsChildren(t *testing.T) {
	items := []S3SelectedItem{
		{Name: "dir", IsDirectory: true, Children: []S3SelectedItem{{Name: "child", JobID: 4}}},
		{Name: "file", JobID: 2},
	}

	assert.True(t, SetS3State(items, 4, transfer.InProgress(30)))
	assert.Equal(t, transfer.InProgress(30), items[0].Children[0].State)

	found, ok := FindS3(items, 2)
	require.True(t, ok)
	assert.Equal(t, "file", found.Name)

	assert.False(t, SetS3State(items, 99, transfer.Completed()))
	assert.False(t, SetS3State(items, 0, transfer.Completed()), "zero id never matches")
}

func TestNewLocalSelection_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0644))

	item, err := NewLocalSelection(file, "bucket", "/", testCreds)
	require.NoError(t, err)
	assert.False(t, item.IsDirectory)
	assert.True(t, item.IsLeaf())
	assert.Equal(t, "report.pdf", item.DestinationKey())

	item.DestinationPath = "backups/"
	assert.Equal(t, "backups/report.pdf", item.DestinationKey())

	item.DestinationPath = "backups/renamed.pdf"
	assert.Equal(t, "backups/renamed.pdf", item.DestinationKey())
}

func TestNewLocalSelection_Directory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "b.txt"), []byte("b"), 0644))

	item, err := NewLocalSelection(root, "bucket", "backups/", testCreds)
	require.NoError(t, err)
	assert.True(t, item.IsDirectory)

	var keys []string
	for _, child := range Flatten([]LocalSelectedItem{item}) {
		keys = append(keys, child.DestinationKey())
		assert.Equal(t, "bucket", child.DestinationBucket)
	}
	assert.Equal(t, []string{"backups/photos/2024/b.txt", "backups/photos/a.txt"}, keys)
}

func TestLocalSelectedItem_Equal(t *testing.T) {
	a := LocalSelectedItem{Name: "a", Path: "/tmp/a"}
	b := LocalSelectedItem{Name: "a", Path: "/tmp/a", DestinationBucket: "other", State: transfer.Paused(10)}
	assert.True(t, a.Equal(b))
	assert.True(t, ContainsLocal([]LocalSelectedItem{b}, a))
	assert.False(t, ContainsLocal(nil, a))
}

func TestTransferItem_ProgressText(t *testing.T) {
	tests := []struct {
		state    transfer.TransferState
		expected string
	}{
		{transfer.Pending(), "░░░░░░░░   0.0%"},
		{transfer.InProgress(50), "████░░░░  50.0%"},
		{transfer.Paused(42), "Paused  42.0%"},
		{transfer.Completed(), "Completed"},
		{transfer.Cancelled(), "Cancelled"},
		{transfer.Failed("boom"), "░░░░░░░░   0.0%"},
	}

	for _, tt := range tests {
		item := TransferItem{State: tt.state}
		assert.Equal(t, tt.expected, item.ProgressText(), "state %s", tt.state)
	}
}

func TestTransferItem_Columns(t *testing.T) {
	down := FromS3Item(S3SelectedItem{Bucket: "b", Name: "a.txt", DestinationDir: "/dl", Creds: testCreds, State: transfer.Failed("denied")})
	assert.Equal(t, []string{"↓", "b", "a.txt", "/dl", "personal", "░░░░░░░░   0.0%", "denied"}, down.Columns())

	up := FromLocalItem(LocalSelectedItem{Name: "x", Path: "/x", DestinationBucket: "b", DestinationPath: "/", Creds: testCreds, State: transfer.Completed()})
	assert.Equal(t, []string{"↑", "b", "x", "/", "personal", "Completed", ""}, up.Columns())
}

func TestTransferItems_DownloadsFirst(t *testing.T) {
	rows := TransferItems(
		[]S3SelectedItem{{Name: "dir", IsDirectory: true, Children: []S3SelectedItem{{Name: "d1"}, {Name: "d2"}}}},
		[]LocalSelectedItem{{Name: "u1"}},
	)
	require.Len(t, rows, 3)
	assert.Equal(t, transfer.Download, rows[0].Direction)
	assert.Equal(t, "d2", rows[1].Name)
	assert.Equal(t, transfer.Upload, rows[2].Direction)
}

func TestTransferItem_SpeedAndETA(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	item := TransferItem{}.WithProgress(transfer.Progress{Bytes: 200, Total: 1000}, start)

	now := start.Add(2 * time.Second)
	assert.Equal(t, 100.0, item.Speed(now))
	eta, ok := item.ETA(now)
	require.True(t, ok)
	assert.Equal(t, 8*time.Second, eta)

	_, ok = TransferItem{}.ETA(now)
	assert.False(t, ok)
}

func TestTransferItem_Matches(t *testing.T) {
	obj := NewS3Object("b", "docs/a.txt", "/dl", testCreds)
	row := FromS3Item(obj)
	assert.True(t, row.MatchesS3(obj))
	assert.False(t, row.MatchesS3(NewS3Object("b", "docs/b.txt", "/dl", testCreds)))

	file := LocalSelectedItem{Name: "x", Path: "/x", DestinationBucket: "b", DestinationPath: "/"}
	up := FromLocalItem(file)
	assert.True(t, up.MatchesLocal(file))
	assert.False(t, up.MatchesS3(obj), "direction must match")
	assert.False(t, row.MatchesLocal(file))
}

func TestPrune_DropsEmptiedParents(t *testing.T) {
	items := []S3SelectedItem{
		{Name: "done", State: transfer.Completed()},
		{Name: "dir", IsDirectory: true, Children: []S3SelectedItem{
			{Name: "a", State: transfer.Failed("x")},
			{Name: "b", State: transfer.Paused(10)},
		}},
		{Name: "finished-dir", IsDirectory: true, Children: []S3SelectedItem{
			{Name: "c", State: transfer.Cancelled()},
		}},
		{Name: "prefix", IsDirectory: true},
	}

	kept := Prune(items, func(item S3SelectedItem) bool { return item.State.IsTerminal() })
	require.Len(t, kept, 2)
	assert.Equal(t, "dir", kept[0].Name)
	require.Len(t, kept[0].Children, 1)
	assert.Equal(t, "b", kept[0].Children[0].Name)
	assert.Equal(t, "prefix", kept[1].Name, "unlisted prefixes are leaves")
	assert.Len(t, items[1].Children, 2, "input is not modified")
}
