// Package crawler defines the catalogue scrape domain: the records, page
// tasks, and run summaries shared by the pipeline, the collaborator
// interfaces each stage implements, page URL construction, and the
// ResultAggregator every page task appends into.
package crawler
