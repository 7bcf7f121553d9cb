// Package observable provides a mutable value cell with change notification.
//
// A Box holds a single value and notifies subscribers synchronously after
// every committed write. A pluggable equality policy decides whether a write
// actually changed the value; writes judged equal to the current value are
// suppressed and never reach subscribers.
//
// Equality policies:
//   - Identity: interface identity (== on the boxed values)
//   - Shallow: == for comparable types, never equal otherwise (the default)
//   - Deep: reflect.DeepEqual
//
// Custom policies can be supplied as plain functions.
package observable
