package save

import "github.com/santhosh-tekuri/jsonschema/v5"

const progressSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "currentIslandIndex", "currentRoom", "ledger", "savedAt"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "sessionId": {"type": "string"},
    "currentIslandIndex": {"type": "integer", "minimum": 0},
    "currentRoom": {"type": "integer", "minimum": 0, "maximum": 2},
    "playerName": {"type": "string"},
    "avatar": {
      "type": "object",
      "properties": {
        "bodyColor": {"type": "string"},
        "outfit": {"type": "string"},
        "accessory": {"type": "string"}
      }
    },
    "ledger": {
      "type": "object",
      "required": ["lines", "metaComplete"],
      "properties": {
        "metaComplete": {"type": "boolean"},
        "lines": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["id", "completed", "badgeEarned"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "badge": {"type": "string"},
              "completed": {"type": "boolean"},
              "badgeEarned": {"type": "boolean"},
              "progress": {
                "type": ["object", "null"],
                "additionalProperties": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    },
    "playSeconds": {"type": "integer", "minimum": 0},
    "rngSeed": {"type": "integer"},
    "rngPosition": {"type": "integer", "minimum": 0},
    "savedAt": {"type": "string", "format": "date-time"}
  }
}`

var progressSchema = jsonschema.MustCompileString("saved_progress.schema.json", progressSchemaJSON)
