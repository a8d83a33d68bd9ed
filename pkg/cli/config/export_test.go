package config

// RedactorForTest exposes the attribute filter installed on every handler
var RedactorForTest = redactor
