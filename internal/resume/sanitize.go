package resume

import (
	"reflect"
	"strings"
)

// SanitizeItems 在落库前清洗一批条目的字符串字段：
//   - string 字段去除首尾空白；
//   - *string 字段去除空白后若为空则置为 nil（日期/外键列不接受空串）；
//   - 其余字段原样保留。
//
// 原地修改并按原顺序返回同一个切片。纯函数语义，任何输入都不报错。
func SanitizeItems[T any](items []T) []T {
	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			continue
		}
		sanitizeStruct(v.Elem())
	}
	return items
}

func sanitizeStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(field.String()))
		case reflect.Pointer:
			if field.Type().Elem().Kind() != reflect.String || field.IsNil() {
				continue
			}
			trimmed := strings.TrimSpace(field.Elem().String())
			if trimmed == "" {
				field.SetZero()
			} else {
				field.Elem().SetString(trimmed)
			}
		case reflect.Struct:
			// 嵌入的 gorm.Model 等结构体；时间戳里没有字符串，递归是兜底。
			if v.Type().Field(i).Anonymous {
				sanitizeStruct(field)
			}
		}
	}
}
