package agent

// SetName returns an UpdateSetter that sets the agent's name.
func SetName(name string) UpdateSetter {
	return func(r *UpdateRequest) error {
		if name == "" {
			return ErrInvalidName
		}
		r.Name = &name
		return nil
	}
}

// SetFramework returns an UpdateSetter that sets the agent's framework.
func SetFramework(framework Framework) UpdateSetter {
	return func(r *UpdateRequest) error {
		if !framework.IsValid() {
			return ErrInvalidFramework
		}
		r.Framework = &framework
		return nil
	}
}

// SetConfig returns an UpdateSetter that replaces the agent's configuration.
func SetConfig(config map[string]interface{}) UpdateSetter {
	return func(r *UpdateRequest) error {
		if config == nil {
			return ErrInvalidConfig
		}
		r.Config = config
		return nil
	}
}
