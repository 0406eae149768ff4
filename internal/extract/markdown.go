package extract

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// Markdown converts an HTML fragment to markdown. It is used to build
// readable context excerpts for the remote answering service; on conversion
// failure the fallback text is returned unchanged.
func Markdown(htmlFragment, fallback string) string {
	out, err := mdConverter.ConvertString(htmlFragment)
	if err != nil || CleanText(out) == "" {
		return fallback
	}
	return CleanText(out)
}
