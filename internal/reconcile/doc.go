// Package reconcile turns raw source observations into the stored monthly
// series and keeps that series current.
//
// The merger joins the historical file and the remote feed into one
// continuous sequence: the feed's reconstructed index is rescaled so its
// first value meets the last historical value exactly, duplicates resolve
// in favor of the feed, and all rates are rederived from the merged index
// rather than trusted from either source.
//
// The driver runs one refresh cycle at a time: full load when the store
// is empty, merge-and-extend when it lags, curated overrides for the
// months the feed has not published yet, and compound-growth
// interpolation for interior gaps whose both anchors exist. Cycles are
// serialized by a mutex; each is stamped with a UUIDv7 cycle token and
// logged to the store's refresh log.
package reconcile
