package tiered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Server Status Check!", "server status check"},
		{"  multiple   spaces\there ", "multiple spaces here"},
		{"ＣＰＵ usage?", "cpu usage"},
		{"서버 상태 확인해줘.", "서버 상태 확인해줘"},
		{"a-b c", "ab c"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in, HangulSyllables), "input %q", tc.in)
	}
}

func TestNormalizeDropsUnlistedScripts(t *testing.T) {
	assert.Equal(t, "cpu", Normalize("cpu 사용률"))
	assert.Equal(t, "cpu 사용률", Normalize("cpu 사용률", HangulSyllables))
}

func TestPatternKey(t *testing.T) {
	assert.Equal(t, "pattern_check_server_status", PatternKey("server status check"))
	// Words of two runes or fewer are ignored.
	assert.Equal(t, "pattern_cpu_usage", PatternKey("is cpu usage ok"))
	// Only the three longest survive.
	assert.Equal(t, "pattern_database_performance_replication",
		PatternKey("show database replication performance now"))
	assert.Equal(t, "pattern_", PatternKey("hi"))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("a b c", "a b c"))
	assert.Equal(t, 0.0, Jaccard("", "a"))
	assert.InDelta(t, 0.5, Jaccard("a b", "a c b d"), 1e-9)
	assert.InDelta(t, 1.0, Jaccard("a b a", "b a"), 1e-9)
}
