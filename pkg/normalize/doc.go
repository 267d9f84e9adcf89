// Package normalize turns raw timeline records into models.Post values.
//
// A Normalizer is bound to a timezone and a clock so relative timestamps
// ("3分钟前", "昨天 12:30") resolve deterministically in tests. Truncated
// long-form posts are expanded page by page with a LongTextFetcher before
// normalization; expansion failures keep the truncated text.
package normalize
