// Package s3store persists helper state as S3 objects, one object per
// namespace/key pair under "<namespace>/<key>.json". Useful when state must
// survive hosts, e.g. desktop sync or fleet-wide defaults.
package s3store
