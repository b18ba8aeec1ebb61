package index_test

import (
	"testing"

	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opt(name, description string) *optsearch.Option {
	return &optsearch.Option{Name: name, Description: description, Type: "boolean"}
}

func nginxRecords() []*optsearch.Option {
	return []*optsearch.Option{
		opt("services.nginx.enable", "Whether to enable the nginx web server."),
		opt("services.nginx.package", "The nginx package to use."),
		opt("services.nginx.virtualHosts", "Declarative virtual host configuration."),
		opt("services.postgresql.enable", "Whether to enable the PostgreSQL server."),
		opt("networking.hostName", "The machine hostname."),
	}
}

func TestQueriesBeforeBuildFailFast(t *testing.T) {
	t.Parallel()

	ix := index.New()

	_, err := ix.Search("anything", 10)
	assert.Equal(t, optsearch.ENOTREADY, optsearch.ErrorCode(err))

	_, err = ix.Lookup("services.nginx.enable")
	assert.Equal(t, optsearch.ENOTREADY, optsearch.ErrorCode(err))

	_, err = ix.ListPrefix("services")
	assert.Equal(t, optsearch.ENOTREADY, optsearch.ErrorCode(err))
}

// TestRebuildConsistency verifies the structural invariant: every name
// in any derived mapping resolves in the primary options map, and
// every record's full name appears in the name index under itself.
func TestRebuildConsistency(t *testing.T) {
	t.Parallel()

	ix := index.New()
	records := nginxRecords()
	ix.Build(records)

	snap := ix.Snapshot()
	require.NotNil(t, snap)
	require.NoError(t, snap.Validate(1))

	for _, rec := range records {
		names := snap.Derived.Names[rec.Name]
		assert.Contains(t, names, rec.Name, "full name must index itself")
	}
}

func TestBuildReplacesPreviousContents(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())
	require.Equal(t, 5, ix.Count())

	ix.Build([]*optsearch.Option{opt("a.b", "only one")})
	assert.Equal(t, 1, ix.Count())

	_, err := ix.Lookup("services.nginx.enable")
	assert.Equal(t, optsearch.ENOTFOUND, optsearch.ErrorCode(err))
}

func TestBuildFlattensSubOptions(t *testing.T) {
	t.Parallel()

	parent := opt("services.nginx", "The nginx service.")
	parent.SubOptions = map[string]*optsearch.Option{
		"services.nginx.enable": opt("services.nginx.enable", "Whether to enable nginx."),
	}

	ix := index.New()
	ix.Build([]*optsearch.Option{parent})

	_, err := ix.Lookup("services.nginx.enable")
	assert.NoError(t, err)
	assert.Equal(t, 2, ix.Count())
}

func TestSearchExactMatchWinsWithMaxScore(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	results, err := ix.Search("services.nginx.enable", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "services.nginx.enable", results[0].Option.Name)
	assert.Equal(t, 100, results[0].Score)
}

func TestSearchWordMatch(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	results, err := ix.Search("nginx", 10)
	require.NoError(t, err)

	names := resultNames(results)
	assert.Contains(t, names, "services.nginx.enable")
	assert.Contains(t, names, "services.nginx.package")
	assert.NotContains(t, names, "networking.hostName")
}

func TestSearchFuzzyTypo(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	// "servces" is edit distance 1 from "services".
	results, err := ix.Search("servces.nginx", 10)
	require.NoError(t, err)
	assert.Contains(t, resultNames(results), "services.nginx.enable")
}

func TestSearchHierarchicalPartialTrailingSegment(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	results, err := ix.Search("services.ngi", 10)
	require.NoError(t, err)

	names := resultNames(results)
	require.Contains(t, names, "services.nginx.enable")
	// Hierarchical matches outrank the word-token matches that the
	// shared "services" segment pulls in.
	assert.Equal(t, "services.nginx.enable", results[0].Option.Name)
}

func TestSearchQuotedPhrase(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	results, err := ix.Search(`"web server"`, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "services.nginx.enable", results[0].Option.Name)
	assert.Equal(t, 50, results[0].Score, "description phrase match")
}

func TestSearchEndToEndScenario(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build([]*optsearch.Option{
		opt("a.b.c", "desc1"),
		opt("a.b.d", "desc2"),
		opt("x.y", "desc3"),
	})

	results, err := ix.Search("a.b", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b.c", "a.b.d"}, resultNames(results))

	results, err = ix.Search("x", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.y"}, resultNames(results))

	results, err = ix.Search("nonexistent", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build([]*optsearch.Option{
		opt("a.b.c", "same"),
		opt("a.b.d", "same"),
		opt("a.b.e", "same"),
	})

	for range 10 {
		results, err := ix.Search("a.b", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.b.c", "a.b.d", "a.b.e"}, resultNames(results))
	}
}

func TestSearchLimit(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	results, err := ix.Search("services.nginx", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	_, err := ix.Search("   ", 10)
	assert.Equal(t, optsearch.EINVALID, optsearch.ErrorCode(err))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	got, err := ix.Lookup("networking.hostName")
	require.NoError(t, err)
	assert.Equal(t, "The machine hostname.", got.Description)

	_, err = ix.Lookup("networking.hostname")
	assert.Equal(t, optsearch.ENOTFOUND, optsearch.ErrorCode(err))
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	// Completions of the name itself.
	got, err := ix.Suggest("services.nginx.e", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"services.nginx.enable"}, got)

	// Siblings under the parent path for a dead-end name.
	got, err = ix.Suggest("services.nginx.zzz", 5)
	require.NoError(t, err)
	assert.Contains(t, got, "services.nginx.enable")
	assert.Contains(t, got, "services.nginx.package")
}

func TestListPrefix(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	opts, err := ix.ListPrefix("services.nginx")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"services.nginx.enable",
		"services.nginx.package",
		"services.nginx.virtualHosts",
	}, optionNames(opts))

	all, err := ix.ListPrefix("")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := ix.ListPrefix("nosuch")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChildSegments(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	segments, err := ix.ChildSegments("services")
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx", "postgresql"}, segments)

	roots, err := ix.ChildSegments("")
	require.NoError(t, err)
	assert.Equal(t, []string{"networking", "services"}, roots)
}

func resultNames(results []optsearch.SearchResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Option.Name)
	}
	return names
}

func optionNames(opts []*optsearch.Option) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
