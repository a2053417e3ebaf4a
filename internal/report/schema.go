package report

// Schema is the JSON Schema (Draft 2020-12) for the classlens analysis
// JSON output. It documents the structure returned by WriteJSON.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/unbound-force/classlens/analysis-report.schema.json",
  "title": "classlens Analysis Report",
  "description": "Output schema for classlens analyze --format=json",
  "type": "object",
  "required": ["version", "run_id", "source", "insights", "failures"],
  "properties": {
    "version": {
      "type": "string",
      "description": "classlens version that produced the report"
    },
    "run_id": {
      "type": "string",
      "description": "UUID identifying this run"
    },
    "source": {
      "type": "string",
      "description": "Scanned directory, archive or class file"
    },
    "insights": { "$ref": "#/$defs/ProjectInsights" },
    "failures": {
      "type": "array",
      "items": { "$ref": "#/$defs/Failure" }
    }
  },
  "$defs": {
    "StringList": {
      "type": "array",
      "items": { "type": "string" }
    },
    "Cycles": {
      "type": "array",
      "items": {
        "type": "array",
        "items": { "type": "string" },
        "minItems": 2
      }
    },
    "Score": {
      "type": "integer",
      "minimum": 0,
      "maximum": 100
    },
    "Rating": {
      "type": "string",
      "enum": ["excellent", "good", "fair", "poor"]
    },
    "Failure": {
      "type": "object",
      "required": ["entry", "reason"],
      "properties": {
        "entry": { "type": "string" },
        "reason": { "type": "string" }
      }
    },
    "ProjectInsights": {
      "type": "object",
      "required": ["summary", "packages", "security", "quality", "impact"],
      "properties": {
        "summary": { "$ref": "#/$defs/Summary" },
        "packages": { "$ref": "#/$defs/PackageInsights" },
        "security": { "$ref": "#/$defs/SecurityInsights" },
        "quality": { "$ref": "#/$defs/QualityInsights" },
        "impact": { "$ref": "#/$defs/ImpactAnalysis" }
      }
    },
    "Summary": {
      "type": "object",
      "required": [
        "total_classes", "total_methods", "total_fields",
        "average_complexity", "interfaces", "abstract_classes", "packages"
      ],
      "properties": {
        "total_classes": { "type": "integer", "minimum": 0 },
        "total_methods": { "type": "integer", "minimum": 0 },
        "total_fields": { "type": "integer", "minimum": 0 },
        "average_complexity": { "type": "number", "minimum": 0 },
        "interfaces": { "type": "integer", "minimum": 0 },
        "abstract_classes": { "type": "integer", "minimum": 0 },
        "packages": { "type": "integer", "minimum": 0 }
      }
    },
    "PackageInsights": {
      "type": "object",
      "required": [
        "class_count_by_package", "complexity_by_package",
        "dependencies_by_package", "most_connected_packages",
        "coupling", "cycles"
      ],
      "properties": {
        "class_count_by_package": {
          "type": "object",
          "additionalProperties": { "type": "integer", "minimum": 1 }
        },
        "complexity_by_package": {
          "type": "object",
          "additionalProperties": { "type": "number", "minimum": 0 },
          "description": "Running pairwise average in class-name order"
        },
        "dependencies_by_package": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/StringList" }
        },
        "most_connected_packages": {
          "type": "array",
          "items": { "type": "string" },
          "maxItems": 5
        },
        "coupling": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["afferent", "efferent", "instability"],
            "properties": {
              "afferent": { "type": "integer", "minimum": 0 },
              "efferent": { "type": "integer", "minimum": 0 },
              "instability": { "type": "number", "minimum": 0, "maximum": 1 }
            }
          }
        },
        "cycles": { "$ref": "#/$defs/Cycles" }
      }
    },
    "SecurityInsights": {
      "type": "object",
      "required": [
        "reflection_usage", "serialization_classes",
        "deprecated_api_usage", "native_methods", "score", "rating"
      ],
      "properties": {
        "reflection_usage": { "$ref": "#/$defs/StringList" },
        "serialization_classes": { "$ref": "#/$defs/StringList" },
        "deprecated_api_usage": { "$ref": "#/$defs/StringList" },
        "native_methods": { "$ref": "#/$defs/StringList" },
        "score": { "$ref": "#/$defs/Score" },
        "rating": { "$ref": "#/$defs/Rating" }
      }
    },
    "QualityInsights": {
      "type": "object",
      "required": [
        "overall_complexity", "high_complexity_classes",
        "refactoring_candidates", "maintainability_score", "rating",
        "design_patterns"
      ],
      "properties": {
        "overall_complexity": { "type": "number", "minimum": 0 },
        "high_complexity_classes": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["class", "complexity"],
            "properties": {
              "class": { "type": "string" },
              "complexity": { "type": "number" }
            }
          }
        },
        "refactoring_candidates": { "$ref": "#/$defs/StringList" },
        "maintainability_score": { "$ref": "#/$defs/Score" },
        "rating": { "$ref": "#/$defs/Rating" },
        "design_patterns": {
          "type": "object",
          "additionalProperties": { "type": "integer", "minimum": 1 }
        }
      }
    },
    "ImpactAnalysis": {
      "type": "object",
      "required": [
        "impacted_by", "risk_scores", "critical_classes", "level_counts",
        "centrality", "cycles", "critical_threshold", "moderate_threshold"
      ],
      "properties": {
        "impacted_by": {
          "type": "object",
          "additionalProperties": { "$ref": "#/$defs/StringList" }
        },
        "risk_scores": {
          "type": "object",
          "additionalProperties": { "type": "integer", "minimum": 0 }
        },
        "critical_classes": { "$ref": "#/$defs/StringList" },
        "level_counts": {
          "type": "object",
          "propertyNames": { "enum": ["critical", "moderate", "low"] },
          "additionalProperties": { "type": "integer", "minimum": 0 }
        },
        "centrality": {
          "type": "object",
          "additionalProperties": { "type": "number", "minimum": 0 }
        },
        "cycles": { "$ref": "#/$defs/Cycles" },
        "critical_threshold": { "type": "integer" },
        "moderate_threshold": { "type": "integer" }
      }
    }
  }
}`
