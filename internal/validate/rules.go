package validate

// rules.go - whitelists and the option/type compatibility table

// validAnnotations is the fixed set of recognized @annotations.
var validAnnotations = []string{
	"database", "table", "meta", "columns", "fields", "dataset",
	"beforeAdd", "afterAdd", "beforeUpdate", "afterUpdate",
	"beforeDelete", "afterDelete", "compute", "column",
}

// validTypes is the fixed set of primitive column types.
var validTypes = []string{
	"int", "integer", "bigint", "float", "double", "decimal",
	"varchar", "string", "text", "boolean", "date", "datetime",
}

// validOptions is the fixed set of column options.
var validOptions = []string{
	"not null", "primary", "autoincrement", "unique",
	"zerofill", "index", "required", "unsigned",
}

// numericTypes are the types that numeric-only options may be applied to.
var numericTypes = []string{"int", "integer", "bigint", "float", "double", "decimal"}

// optionCompat maps an option to the column types it is valid for.
// Options absent from this table are valid against any type.
var optionCompat = map[string][]string{
	"zerofill":      numericTypes,
	"unsigned":      numericTypes,
	"autoincrement": numericTypes,
	"primary":       {"int", "varchar", "string"},
}

// validColumnProps are the property names allowed inside a @columns block.
var validColumnProps = []string{
	"type", "length", "options", "value", "defaultValue",
	"foreign", "enumValues", "description",
}

// validForeignProps are the property names allowed inside a foreign block.
var validForeignProps = []string{"table", "column"}

// typeOptionalBlocks are column blocks that are not required to declare a type.
var typeOptionalBlocks = []string{"foreign", "defaultValue"}

func inList(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
