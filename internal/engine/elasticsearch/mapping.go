package elasticsearch

// indexMapping is the mapping the composed queries rely on: analyzed label
// and definition values for fuzzy matching, a keyword subfield of the label
// for prefix matching and sorting, and keyword facets.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":    { "type": "keyword" },
      "@type": { "type": "keyword" },
      "label": {
        "properties": {
          "@language": { "type": "keyword" },
          "@value":    { "type": "text", "fields": { "raw": { "type": "keyword", "ignore_above": 256 } } }
        }
      },
      "definition": {
        "properties": {
          "@language": { "type": "keyword" },
          "@value":    { "type": "text" }
        }
      },
      "content_hash": { "type": "keyword", "index": false }
    }
  }
}`
