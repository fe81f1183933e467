package patch

import (
	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile"
)

// BrandingKey is the symbol table key of BrandingHook.
const BrandingKey = "branding"

// Brand is the server brand reported once the branding hook is in place.
const Brand = "§b§lSilk§r"

// brandingMajor is the class format of BrandingClass, Java 8.
const brandingMajor = 52

// BrandingHook is the JVM side replacement for the server mod name.
var BrandingHook = HookSymbol{
	Owner:      "cx/rain/mc/silk/patch/SilkBrandingPatch",
	Name:       "insertBranding",
	Descriptor: "(Ljava/lang/String;)Ljava/lang/String;",
}

// Branding returns the unit that routes the server and client mod names of
// MinecraftServer through BrandingHook.
func Branding() *ReturnHook {
	h, err := NewReturnHook(ReturnHookConfig{
		Name:        "branding",
		Classes:     []string{"net.minecraft.server.MinecraftServer"},
		MethodNames: []string{"getServerModName", "getClientModName"},
		ReturnType:  "Ljava/lang/String;",
		Hook:        BrandingHook,
		HookClass:   BrandingClass,
	})
	if err != nil {
		panic(err)
	}
	return h
}

// BrandingClass builds the class behind BrandingHook: insertBranding ignores
// its argument and returns Brand.
func BrandingClass() ([]byte, error) {
	cf, err := classfile.NewClass(BrandingHook.Owner, "java/lang/Object", brandingMajor)
	if err != nil {
		return nil, err
	}
	cf.AccessFlags |= classfile.AccFinal
	brand, err := cf.AddString(Brand)
	if err != nil {
		return nil, err
	}
	_, err = cf.AddMethod(classfile.AccPublic|classfile.AccStatic, BrandingHook.Name, BrandingHook.Descriptor, &classfile.CodeAttribute{
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []byte{bytecode.OpLdcW, byte(brand >> 8), byte(brand), bytecode.OpAreturn},
	})
	if err != nil {
		return nil, err
	}
	return cf.Bytes()
}
