package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps character documents: the name and the processed
// article are full text, id and universe are exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// article text is large; searchable only
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = false
	textFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	universeFieldMapping := bleve.NewTextFieldMapping()
	universeFieldMapping.Analyzer = keyword.Name
	universeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("universe", universeFieldMapping)

	sentimentFieldMapping := bleve.NewTextFieldMapping()
	sentimentFieldMapping.Analyzer = keyword.Name
	sentimentFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("sentiment", sentimentFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
