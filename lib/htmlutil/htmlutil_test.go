package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetLines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div>
		<h3>Flight <b>2025-10-24</b> 13:14:36</h3>
		<script>var x = 1;</script>
		<p>Pilot:   Flight Dev</p>
		<p>   </p>
		<span>00:03:27</span><br><span>Test Flight</span>
	</div>`))
	require.NoError(t, err)

	require.Equal(t, []string{
		"Flight 2025-10-24 13:14:36",
		"Pilot: Flight Dev",
		"00:03:27",
		"Test Flight",
	}, GetLines(doc.Find("div").Get(0)))
}

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<a href="/inventory/droneDetail.php?id=1">  DJI
			Mini 3 </a>
		<a>no href</a>`))
	require.NoError(t, err)

	require.Equal(t, []Anchor{
		{Name: "DJI Mini 3", Href: "/inventory/droneDetail.php?id=1"},
		{Name: "no href", Href: ""},
	}, GetAnchors(context.Background(), doc.Find("a")))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText(" a\n b\t\t c \x00"))
}
