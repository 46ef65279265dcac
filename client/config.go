package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Placeholder tokens embedded in the URL templates. The instance-id
// placeholder of the management templates is not fixed: it is the literal
// value of ManagementURLs.ID.
const (
	eventNamePlaceholder    = "{eventName}"
	functionNamePlaceholder = "{functionName}"
	reasonPlaceholder       = "{text}"
	instanceIDPlaceholder   = "[/{instanceId}]"
)

type (
	// Config carries the webhook endpoint configuration the host hands to its
	// clients: the task hub name and the URL template sets for managing and
	// creating orchestration instances. The client copies the configuration at
	// construction and never mutates it.
	Config struct {
		// TaskHubName is the task hub the templates address.
		TaskHubName string `json:"taskHubName" yaml:"taskHubName"`
		// ManagementURLs are the per-instance lifecycle templates.
		ManagementURLs *ManagementURLs `json:"managementUrls" yaml:"managementUrls"`
		// CreationURLs are the instance creation templates.
		CreationURLs *CreationURLs `json:"creationUrls" yaml:"creationUrls"`
	}

	// ManagementURLs is the set of lifecycle URL templates for one task hub.
	// Every template embeds the ID token exactly once; operations substitute
	// it with a concrete instance id by literal string replacement, so ids
	// must not collide with other template text.
	ManagementURLs struct {
		// ID is the literal instance-id placeholder token embedded in the
		// templates below.
		ID string `json:"id" yaml:"id"`
		// StatusQueryGetURI queries the status of one instance.
		StatusQueryGetURI string `json:"statusQueryGetUri" yaml:"statusQueryGetUri"`
		// SendEventPostURI delivers an external event; it also embeds the
		// {eventName} placeholder.
		SendEventPostURI string `json:"sendEventPostUri" yaml:"sendEventPostUri"`
		// TerminatePostURI terminates an instance; it also embeds the {text}
		// reason placeholder.
		TerminatePostURI string `json:"terminatePostUri" yaml:"terminatePostUri"`
		// RewindPostURI rewinds a failed instance; it also embeds the {text}
		// reason placeholder.
		RewindPostURI string `json:"rewindPostUri" yaml:"rewindPostUri"`
		// PurgeHistoryDeleteURI purges the stored history of one instance.
		PurgeHistoryDeleteURI string `json:"purgeHistoryDeleteUri" yaml:"purgeHistoryDeleteUri"`
	}

	// CreationURLs is the set of instance creation URL templates. Each embeds
	// the {functionName} placeholder and the optional trailing [/{instanceId}]
	// segment.
	CreationURLs struct {
		// CreateNewInstancePostURI schedules a new instance.
		CreateNewInstancePostURI string `json:"createNewInstancePostUri" yaml:"createNewInstancePostUri"`
		// CreateAndWaitOnNewInstancePostURI schedules a new instance and holds
		// the HTTP response until it completes. Optional; no client operation
		// consumes it.
		CreateAndWaitOnNewInstancePostURI string `json:"createAndWaitOnNewInstancePostUri,omitempty" yaml:"createAndWaitOnNewInstancePostUri,omitempty"`
	}
)

// configSchema validates configuration documents at the binding boundary
// before they are bound to Config.
const configSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["taskHubName", "managementUrls", "creationUrls"],
	"properties": {
		"taskHubName": {"type": "string", "minLength": 1},
		"managementUrls": {
			"type": "object",
			"required": ["id", "statusQueryGetUri", "sendEventPostUri", "terminatePostUri", "rewindPostUri", "purgeHistoryDeleteUri"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"statusQueryGetUri": {"type": "string", "minLength": 1},
				"sendEventPostUri": {"type": "string", "minLength": 1},
				"terminatePostUri": {"type": "string", "minLength": 1},
				"rewindPostUri": {"type": "string", "minLength": 1},
				"purgeHistoryDeleteUri": {"type": "string", "minLength": 1}
			}
		},
		"creationUrls": {
			"type": "object",
			"required": ["createNewInstancePostUri"],
			"properties": {
				"createNewInstancePostUri": {"type": "string", "minLength": 1},
				"createAndWaitOnNewInstancePostUri": {"type": "string"}
			}
		}
	}
}`

// ParseConfig decodes a JSON configuration document, validates it against the
// embedded schema and the template invariants, and returns the bound Config.
func ParseConfig(data []byte) (*Config, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("durable: parse configuration: %w", err)
	}
	if err := validateConfigDoc(doc); err != nil {
		return nil, fmt.Errorf("durable: invalid configuration: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("durable: parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfigYAML decodes a YAML configuration document. The document is
// converted to JSON and run through ParseConfig so both loaders share one
// validation path.
func ParseConfigYAML(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("durable: parse configuration: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("durable: parse configuration: %w", err)
	}
	return ParseConfig(jsonData)
}

// validateConfigDoc checks a decoded configuration document against the
// embedded JSON schema.
func validateConfigDoc(doc any) error {
	var schemaDoc any
	if err := json.Unmarshal([]byte(configSchema), &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return schema.Validate(doc)
}

// Validate checks the structural invariants: a task hub name, both template
// sets, and the id placeholder embedded exactly once per template.
func (c *Config) Validate() error {
	if c.TaskHubName == "" {
		return errors.New("durable: taskHubName is required")
	}
	if c.ManagementURLs == nil {
		return errors.New("durable: managementUrls is required")
	}
	if err := c.ManagementURLs.validate(); err != nil {
		return err
	}
	if c.CreationURLs == nil {
		return errors.New("durable: creationUrls is required")
	}
	return c.CreationURLs.validate()
}

func (m *ManagementURLs) validate() error {
	if m.ID == "" {
		return errors.New("durable: managementUrls.id placeholder is required")
	}
	for name, template := range map[string]string{
		"statusQueryGetUri":     m.StatusQueryGetURI,
		"sendEventPostUri":      m.SendEventPostURI,
		"terminatePostUri":      m.TerminatePostURI,
		"rewindPostUri":         m.RewindPostURI,
		"purgeHistoryDeleteUri": m.PurgeHistoryDeleteURI,
	} {
		if template == "" {
			return fmt.Errorf("durable: managementUrls.%s is required", name)
		}
		if strings.Count(template, m.ID) != 1 {
			return fmt.Errorf("durable: managementUrls.%s must contain the id placeholder %q exactly once", name, m.ID)
		}
	}
	return nil
}

func (c *CreationURLs) validate() error {
	if c.CreateNewInstancePostURI == "" {
		return errors.New("durable: creationUrls.createNewInstancePostUri is required")
	}
	templates := map[string]string{"createNewInstancePostUri": c.CreateNewInstancePostURI}
	if c.CreateAndWaitOnNewInstancePostURI != "" {
		templates["createAndWaitOnNewInstancePostUri"] = c.CreateAndWaitOnNewInstancePostURI
	}
	for name, template := range templates {
		if !strings.Contains(template, functionNamePlaceholder) {
			return fmt.Errorf("durable: creationUrls.%s must contain the %s placeholder", name, functionNamePlaceholder)
		}
		if strings.Count(template, instanceIDPlaceholder) != 1 {
			return fmt.Errorf("durable: creationUrls.%s must contain the %s segment exactly once", name, instanceIDPlaceholder)
		}
	}
	return nil
}

// clone returns a deep copy so the client's view of the configuration cannot
// be mutated after construction.
func (c *Config) clone() Config {
	out := Config{TaskHubName: c.TaskHubName}
	if c.ManagementURLs != nil {
		m := *c.ManagementURLs
		out.ManagementURLs = &m
	}
	if c.CreationURLs != nil {
		cr := *c.CreationURLs
		out.CreationURLs = &cr
	}
	return out
}
