package installs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/j-veylop/devicestats/internal/decoder"
)

func TestParseDevice(t *testing.T) {
	in := "t1|2|com.a@10012:android.permission.INTERNET:market,com.b@10013:none:sideload\n" +
		"bad line\n" +
		"t2|3|com.a@10012:none:other,old.app,x\n"

	apps, bad, err := ParseDevice(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseDevice failed: %v", err)
	}
	if bad != 1 {
		t.Errorf("bad = %d, want 1", bad)
	}
	if len(apps) != 2 {
		t.Fatalf("apps = %v", apps)
	}
	a := apps["com.a"]
	if a.Market != "other" || a.Internet {
		t.Errorf("last status should win: %+v", a)
	}
	if b := apps["com.b"]; b.Market != "sideload" || b.Internet {
		t.Errorf("com.b = %+v", b)
	}
}

func TestCounterResults(t *testing.T) {
	c := NewCounter()
	c.Add(map[string]App{
		"a": {Name: "a", Market: "m1", Internet: true},
		"b": {Name: "b", Market: "m1"},
	})
	c.Add(map[string]App{
		"a": {Name: "a", Market: "m2", Internet: true},
		"c": {Name: "c", Market: "m1", Internet: true},
	})
	c.Add(map[string]App{
		"a": {Name: "a", Market: "m1"},
	})

	if c.Devices() != 3 {
		t.Errorf("Devices() = %d", c.Devices())
	}

	tests := []struct {
		name      string
		threshold int
		want      []string
	}{
		{"All", 1, []string{"a", "c", "b"}},
		{"Popular", 2, []string{"a"}},
		{"None", 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Results(tt.threshold)
			if len(got) != len(tt.want) {
				t.Fatalf("Results(%d) = %+v", tt.threshold, got)
			}
			for i, name := range tt.want {
				if got[i].App != name {
					t.Errorf("Results[%d] = %s, want %s", i, got[i].App, name)
				}
			}
		})
	}

	a := c.Results(3)[0]
	if a.Devices != 3 || a.Internet != 2 || a.NoInternet != 1 || a.Markets["m1"] != 2 || a.Markets["m2"] != 1 {
		t.Errorf("count for a = %+v", a)
	}
}

func TestCountSource(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"dev1": "t|1|com.a@1:android.permission.INTERNET:market\n",
		"dev2": "t|2|com.a@1:android.permission.INTERNET:market,com.b@2:none:market\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	counter, err := CountSource(context.Background(), decoder.FileSource{Dir: dir}, 2)
	if err != nil {
		t.Fatalf("CountSource failed: %v", err)
	}
	res := counter.Results(1)
	if len(res) != 2 || res[0].App != "com.a" || res[0].Devices != 2 {
		t.Errorf("results = %+v", res)
	}

	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		t.Fatal(err)
	}
	want := "App;Devices;Internet;NoInternet;Markets\n" +
		"com.a;2;2;0;market=2\n" +
		"com.b;1;0;1;market=1\n"
	if buf.String() != want {
		t.Errorf("Write() =\n%s\nwant\n%s", buf.String(), want)
	}
}
