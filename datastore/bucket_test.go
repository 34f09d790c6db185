package datastore

import (
	"os"
	"path"
	"strings"
	"testing"
)

func writeTestFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(path.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestTaskBucketTestCases(t *testing.T) {
	root := t.TempDir()
	mgr, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("case insensitive task ids", func(t *testing.T) {
		if mgr.Task("B001").TaskID != "b001" {
			t.Fatal("task id should be lowercased")
		}
	})

	t.Run("enumerates in order and stops at gaps", func(t *testing.T) {
		bucket := mgr.Task("gaps")
		if err := os.MkdirAll(path.Join(root, "gaps"), 0755); err != nil {
			t.Fatal(err)
		}
		writeTestFiles(t, path.Join(root, "gaps"),
			"0.1.in", "0.1.out", // samples, never judged
			"1.1.in", "1.1.out",
			"1.2.in", "1.2.out",
			"1.4.in", "1.4.out", // gap at 1.3
			"2.1.in", "2.1.out",
		)

		cases, err := bucket.TestCases(true)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, c := range cases {
			got = append(got, TestInputName(c.Subtask, c.TestCase))
		}
		want := "1.1.in 1.2.in 2.1.in"
		if strings.Join(got, " ") != want {
			t.Fatalf("cases = %v, want %s", got, want)
		}
	})

	t.Run("output required unless grader", func(t *testing.T) {
		bucket := mgr.Task("graderless")
		if err := os.MkdirAll(path.Join(root, "graderless"), 0755); err != nil {
			t.Fatal(err)
		}
		writeTestFiles(t, path.Join(root, "graderless"), "1.1.in")

		cases, err := bucket.TestCases(true)
		if err != nil {
			t.Fatal(err)
		}
		if len(cases) != 0 {
			t.Fatalf("missing output should cut enumeration, got %v", cases)
		}

		cases, err = bucket.TestCases(false)
		if err != nil {
			t.Fatal(err)
		}
		if len(cases) != 1 || cases[0].HasOutput {
			t.Fatalf("grader task should list input-only cases, got %v", cases)
		}
	})

	t.Run("missing bucket", func(t *testing.T) {
		if _, err := mgr.Task("nope").TestCases(true); err == nil {
			t.Fatal("expected error for missing task directory")
		}
	})
}
