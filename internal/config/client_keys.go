package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/questai/mongodb-tools-api/internal/constant"
)

// ClientKeys builds the client_id -> HMAC secret table used to verify version 1 tokens.
// QUEST_AI_SECRET_KEY always provides the quest_ai entry; CLIENT_KEYS_FILE, when set,
// is a YAML mapping merged on top, e.g.
//
//	quest_ai: s3cr3t
//	partner_portal: an0ther
func (c *Config) ClientKeys() (map[string]string, error) {
	keys := make(map[string]string)
	if c.QuestAISecretKey != "" {
		keys[constant.ClientQuestAI] = c.QuestAISecretKey
	}

	if c.ClientKeysFile == "" {
		return keys, nil
	}

	data, err := os.ReadFile(c.ClientKeysFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client keys file: %w", err)
	}

	fileKeys, err := parseClientKeys(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client keys file %s: %w", c.ClientKeysFile, err)
	}

	for id, secret := range fileKeys {
		keys[id] = secret
	}

	return keys, nil
}

func parseClientKeys(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	keys := make(map[string]string, len(raw))
	for id, secret := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty client id")
		}
		if strings.TrimSpace(secret) == "" {
			return nil, fmt.Errorf("client %q has an empty secret", id)
		}
		keys[id] = secret
	}

	return keys, nil
}
