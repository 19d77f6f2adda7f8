package linkresolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedResolver struct {
	link  string
	err   error
	calls int
}

func (r *fixedResolver) Resolve(context.Context, Target) (string, error) {
	r.calls++
	return r.link, r.err
}

func TestStatic(t *testing.T) {
	target := Target{
		PageURL: "https://www.dronelogbook.com/flight/flightDetail.php?id=ABC",
		HTML:    `<script>function dl() { location = '/uploadFile/viewFile.php?id=ABC&amp;type=csv'; }</script>`,
	}
	link, err := Static{}.Resolve(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, "https://www.dronelogbook.com/uploadFile/viewFile.php?id=ABC&type=csv", link)

	_, err = Static{}.Resolve(context.Background(), Target{HTML: "<p>nothing</p>"})
	require.ErrorIs(t, err, ErrNoLink)
}

func TestChainFallsThroughOnlyOnNoLink(t *testing.T) {
	miss := &fixedResolver{err: ErrNoLink}
	hit := &fixedResolver{link: "https://example.com/file"}
	link, err := Chain{miss, hit}.Resolve(context.Background(), Target{})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/file", link)
	require.Equal(t, 1, miss.calls)

	broken := &fixedResolver{err: errors.New("connection reset")}
	next := &fixedResolver{link: "https://example.com/file"}
	_, err = Chain{broken, next}.Resolve(context.Background(), Target{})
	require.EqualError(t, err, "connection reset")
	require.Equal(t, 0, next.calls)

	_, err = Chain{miss}.Resolve(context.Background(), Target{})
	require.ErrorIs(t, err, ErrNoLink)
}

func TestLinkFromDOM(t *testing.T) {
	link, ok := linkFromDOM(`<a class="btn" href="/uploadFile/viewFile.php?id=9">Download</a>`)
	require.True(t, ok)
	require.Equal(t, "/uploadFile/viewFile.php?id=9", link)

	_, ok = linkFromDOM(`<a href="/flight/flightDetail.php?id=9">Details</a>`)
	require.False(t, ok)
}
