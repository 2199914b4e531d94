package config

// mergeProviders merges built-in and user-defined provider configurations.
// User-defined providers override built-in providers with the same id.
func mergeProviders(builtin, user map[string]ProviderConfig) map[string]*ProviderConfig {
	result := make(map[string]*ProviderConfig, len(builtin)+len(user))

	for id, p := range builtin {
		cp := p
		result[id] = &cp
	}
	for id, p := range user {
		cp := p
		result[id] = &cp
	}

	return result
}
