package middleware

// WithKeyPrefix exposes setKeyPrefix to the external test package.
var WithKeyPrefix = setKeyPrefix
