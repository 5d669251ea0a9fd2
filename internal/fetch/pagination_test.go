package fetch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csk-sniffer/imagefetch/internal/fetch"
)

func TestPagerAdvancesOffsetByYieldedCount(t *testing.T) {
	search := &fakeSearch{pages: [][]fetch.Candidate{
		{"a", "b", "c"},
		{"d", "e"},
	}}
	pager := fetch.NewPager(search, "boats", 35)

	first, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 3)

	second, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 2)

	assert.Equal(t, []int{0, 3}, search.offsets)
}

func TestPagerEmptyPageEndsSequence(t *testing.T) {
	search := &fakeSearch{pages: [][]fetch.Candidate{{"a"}}}
	pager := fetch.NewPager(search, "boats", 35)

	_, err := pager.Next(context.Background())
	require.NoError(t, err)

	links, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, links)
	assert.True(t, pager.Done())

	// Once done, Next never hits the backend again.
	_, err = pager.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, search.callCount())
}

func TestPagerRepeatedLastCandidateEndsSequence(t *testing.T) {
	search := &fakeSearch{pages: [][]fetch.Candidate{
		{"a", "b"},
		{"a", "b"},
	}}
	pager := fetch.NewPager(search, "boats", 35)

	_, err := pager.Next(context.Background())
	require.NoError(t, err)

	links, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, links)
	assert.True(t, pager.Done())
}

func TestPagerBackendErrorEndsSequenceWithoutRetry(t *testing.T) {
	search := &fakeSearch{err: errors.New("service unavailable")}
	pager := fetch.NewPager(search, "boats", 35)

	_, err := pager.Next(context.Background())
	require.Error(t, err)
	assert.True(t, pager.Done())

	// The failed page is not retried.
	_, err = pager.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, search.callCount())
}
