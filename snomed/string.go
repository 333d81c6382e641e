package snomed

import "fmt"

func sprintStruct(v interface{}) string {
	return fmt.Sprintf("%+v", v)
}
