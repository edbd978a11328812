package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/familydex/internal/vocab"
)

// execute runs the root command with args and returns what it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// flags are package globals; reset them between runs
	cfgFile, verbose = "", false
	buildOutput, buildFailures, buildFormat, buildLimit, buildQuiet = "", "", "text", 0, false
	vocabFile, configInitForce = "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func speciesJSON(name string, dex int, forms ...string) string {
	varieties := []string{fmt.Sprintf(`{"is_default": true, "pokemon": {"name": %q}}`, name)}
	for _, f := range forms {
		varieties = append(varieties, fmt.Sprintf(`{"is_default": false, "pokemon": {"name": %q}}`, f))
	}
	return fmt.Sprintf(`{"name": %q, "pokedex_numbers": [{"entry_number": %d, "pokedex": {"name": "national"}}], "varieties": [%s]}`,
		name, dex, strings.Join(varieties, ","))
}

func fakePokeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	species := map[string]string{
		"bulbasaur": speciesJSON("bulbasaur", 1),
		"ivysaur":   speciesJSON("ivysaur", 2),
		"meowth":    speciesJSON("meowth", 52, "meowth-alola", "meowth-gmax"),
		"persian":   speciesJSON("persian", 53),
	}
	chains := map[string]string{
		"2": `{"chain": {"species": {"name": "meowth"}, "evolves_to": [{"species": {"name": "persian"}, "evolves_to": []}]}}`,
		"1": `{"chain": {"species": {"name": "bulbasaur"}, "evolves_to": [{"species": {"name": "ivysaur"}, "evolves_to": []}]}}`,
		"3": `{"chain": {"evolves_to": []}}`,
	}

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/evolution-chain/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v2/evolution-chain/"), "/")
		if id == "" {
			fmt.Fprintf(w, `{"results": [{"url": "%[1]s/api/v2/evolution-chain/2/"}, {"url": "%[1]s/api/v2/evolution-chain/1/"}, {"url": "%[1]s/api/v2/evolution-chain/3/"}]}`, srv.URL)
			return
		}
		body, ok := chains[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/v2/pokemon-species/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := species[strings.TrimPrefix(r.URL.Path, "/api/v2/pokemon-species/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildConfig(t *testing.T, dir, baseURL string) string {
	return writeConfig(t, dir, fmt.Sprintf(`
pokeapi:
  base_url: %s/api/v2/
  request_interval: 0s
  timeout: 5s
  max_retries: 0
cache:
  backend: json
  directory: %s
report:
  path: %s
  failures_path: %s
log:
  level: error
`, baseURL, filepath.Join(dir, "cache"), filepath.Join(dir, "dex.txt"), filepath.Join(dir, "failures.txt")))
}

func TestBuild_EndToEnd(t *testing.T) {
	srv := fakePokeAPI(t)
	dir := t.TempDir()
	cfgPath := buildConfig(t, dir, srv.URL)

	out, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Meowth (Alola)")
	assert.Contains(t, out, "Saved to "+filepath.Join(dir, "dex.txt"))
	assert.Contains(t, out, "1 of 3 chains failed")

	report, err := os.ReadFile(filepath.Join(dir, "dex.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Bulbasaur\nIvysaur\nMeowth\nMeowth (Alola)\nPersian\n", string(report))

	failures, err := os.ReadFile(filepath.Join(dir, "failures.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(failures), "chain 3: "))

	var ranks map[string]int
	data, err := os.ReadFile(filepath.Join(dir, "cache", "species_cache.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ranks))
	assert.Equal(t, 1, ranks["bulbasaur"])
	assert.Equal(t, 52, ranks["meowth-alola"])

	var variants map[string][]string
	data, err = os.ReadFile(filepath.Join(dir, "cache", "variant_cache.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &variants))
	assert.Equal(t, []string{"meowth-alola"}, variants["meowth"])
}

func TestBuild_JSONFormatAndLimit(t *testing.T) {
	srv := fakePokeAPI(t)
	dir := t.TempDir()
	cfgPath := buildConfig(t, dir, srv.URL)
	reportPath := filepath.Join(dir, "dex.json")

	_, err := execute(t, "build", "--config", cfgPath, "--limit", "1", "--format", "json", "--output", reportPath, "--quiet")
	require.NoError(t, err)

	var families []struct {
		Chain    int `json:"chain"`
		HeadRank int `json:"head_rank"`
	}
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &families))
	require.Len(t, families, 1)
	assert.Equal(t, 2, families[0].Chain)
	assert.Equal(t, 52, families[0].HeadRank)
}

func TestBuild_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "cache:\n  backend: redis\nlog:\n  level: error\n")

	_, err := execute(t, "build", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestCacheCommands(t *testing.T) {
	srv := fakePokeAPI(t)
	dir := t.TempDir()
	cfgPath := buildConfig(t, dir, srv.URL)

	_, err := execute(t, "build", "--config", cfgPath, "--quiet")
	require.NoError(t, err)

	out, err := execute(t, "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Backend:  json")
	assert.Contains(t, out, "Variants: 4")

	out, err = execute(t, "cache", "export", "--config", cfgPath)
	require.NoError(t, err)
	var dump struct {
		Ranks map[string]int `json:"ranks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	assert.Equal(t, 53, dump.Ranks["persian"])

	_, err = execute(t, "cache", "clear", "--config", cfgPath)
	require.NoError(t, err)
	out, err = execute(t, "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Ranks:    0")
}

func TestBuild_VocabularyChangeRefreshesVariants(t *testing.T) {
	srv := fakePokeAPI(t)
	dir := t.TempDir()
	cfgPath := buildConfig(t, dir, srv.URL)

	_, err := execute(t, "build", "--config", cfgPath, "--quiet")
	require.NoError(t, err)

	out, err := execute(t, "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Vocab:    "+vocab.DefaultVersion)

	// a vocabulary that no longer excludes gigantamax forms
	vocabPath := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(vocabPath, []byte("version: \"keep-gmax\"\nexclusions:\n  - \"-mega\"\n"), 0644))
	body, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	body = append(body, []byte("vocabulary:\n  path: "+vocabPath+"\n")...)
	require.NoError(t, os.WriteFile(cfgPath, body, 0644))

	_, err = execute(t, "build", "--config", cfgPath, "--quiet")
	require.NoError(t, err)

	var variants map[string][]string
	data, err := os.ReadFile(filepath.Join(dir, "cache", "variant_cache.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &variants))
	assert.Equal(t, []string{"meowth-alola", "meowth-gmax"}, variants["meowth"])

	var ranks map[string]int
	data, err = os.ReadFile(filepath.Join(dir, "cache", "species_cache.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ranks))
	assert.Equal(t, 1, ranks["bulbasaur"], "ranks survive a vocabulary change")

	out, err = execute(t, "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Vocab:    keep-gmax")
}

func TestRender(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "log:\n  level: error\n")

	out, err := execute(t, "render", "--config", cfgPath, "nidoran-f", "iron-bundle", "tauros-paldea-aqua-breed")
	require.NoError(t, err)
	assert.Equal(t, "Nidoran♀\nIron Bundle\nTauros (Paldea Aqua Breed)\n", out)
}

func TestInspect(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "log:\n  level: error\n")

	out, err := execute(t, "inspect", "--config", cfgPath, "raticate-totem-alola", "pikachu-starter")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"raticate-totem-alola", "raticate", "true", "8"}, strings.Fields(lines[1])[:4])
	assert.Equal(t, "false", strings.Fields(lines[2])[2])
}

func TestVocab_OutputLoadsBack(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "log:\n  level: error\n")

	out, err := execute(t, "vocab", "--config", cfgPath)
	require.NoError(t, err)

	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))
	v, err := vocab.Load(path)
	require.NoError(t, err)
	assert.Equal(t, vocab.Default().Data(), v.Data())

	out, err = execute(t, "vocab", "--config", cfgPath, "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "version: \""+vocab.DefaultVersion+"\"")
}

func TestConfigShowAndInit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "cache:\n  backend: bolt\nlog:\n  level: error\n")

	out, err := execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "backend: bolt")
	assert.Contains(t, out, "request_interval: 200ms")

	target := filepath.Join(dir, "init", "config.yaml")
	_, err = execute(t, "config", "init", "--config", cfgPath, target)
	require.NoError(t, err)
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--config", cfgPath, target)
	assert.Error(t, err)

	_, err = execute(t, "config", "init", "--config", cfgPath, "--force", target)
	assert.NoError(t, err)
}
