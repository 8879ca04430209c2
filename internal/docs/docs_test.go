package docs

import (
	"strings"
	"testing"
)

func TestTopicsAreSortedAndReadable(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("no embedded topics")
	}
	for i, topic := range topics {
		if i > 0 && topics[i-1] > topic {
			t.Fatalf("topics not sorted: %v", topics)
		}
		body, ok := Get(topic)
		if !ok || strings.TrimSpace(body) == "" {
			t.Fatalf("topic %q is empty or missing", topic)
		}
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get("STATUSES"); !ok {
		t.Fatalf("lookup should ignore case")
	}
	for _, bad := range []string{"", "nope", "../docs", "content/statuses"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}
