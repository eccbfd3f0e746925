package manifest

// Schema is the JSON schema every manifest must satisfy before it is parsed.
// Only package_name, version and manifest_version are required; the other
// top-level sections are optional but must be well-typed when present.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ethPM package manifest",
  "type": "object",
  "required": ["manifest_version", "package_name", "version"],
  "properties": {
    "manifest_version": {"type": "string", "minLength": 1},
    "package_name": {"type": "string", "pattern": "^[a-z][-a-z0-9]{0,255}$"},
    "version": {"type": "string", "minLength": 1},
    "meta": {
      "type": "object",
      "properties": {
        "authors": {"type": "array", "items": {"type": "string"}},
        "license": {"type": "string"},
        "description": {"type": "string"},
        "keywords": {"type": "array", "items": {"type": "string"}},
        "links": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    },
    "sources": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "contract_types": {
      "type": "object",
      "additionalProperties": {"type": "object"}
    },
    "deployments": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {"$ref": "#/definitions/deployment"}
      }
    },
    "build_dependencies": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "definitions": {
    "deployment": {
      "type": "object",
      "properties": {
        "contract_type": {"type": "string"},
        "address": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
        "transaction": {"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"},
        "block": {"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"},
        "runtime_bytecode": {"type": ["string", "object"]}
      }
    }
  }
}`
