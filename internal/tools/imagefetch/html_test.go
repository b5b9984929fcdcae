package imagefetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	t.Parallel()

	doc := `<html><head>
		<meta property="og:image" content="https://cdn.example.com/social.png">
		<link rel="shortcut icon" href="/favicon.ico">
		<link rel="stylesheet" href="/style.css">
	</head><body>
		<div class="Site-Header"><img src="/banner.jpg" alt="Welcome"></div>
		<img src="/logo.png" class="NavLogo" alt="Acme">
	</body></html>`

	assets := parsePage(strings.NewReader(doc))

	assert.Equal(t, "https://cdn.example.com/social.png", assets.OGImage)
	assert.Equal(t, []string{"/favicon.ico"}, assets.Icons)

	require.Len(t, assets.Images, 2)
	assert.Equal(t, "/banner.jpg", assets.Images[0].Src)
	assert.Equal(t, "site-header", assets.Images[0].ParentClass)
	assert.Equal(t, "navlogo", assets.Images[1].Class)
	assert.Equal(t, "acme", assets.Images[1].Alt)
}

func TestParsePageMalformed(t *testing.T) {
	t.Parallel()

	assets := parsePage(strings.NewReader("<div><img src="))
	assert.NotNil(t, assets)
	assert.Empty(t, assets.OGImage)
}
