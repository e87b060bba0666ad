package etl

import "fmt"

// UnknownRegion is the label assigned to provinces outside the health
// region table, typically a sign of a malformed station address.
const UnknownRegion = "Unknown Region"

// healthRegions lists the provinces of the 13 Thai public-health regions.
// Province names are the Thai forms extracted from station addresses;
// region 13 also accepts the romanized capital because address extraction
// normalizes every Bangkok variant to "Bangkok".
var healthRegions = map[int][]string{
	1:  {"เชียงราย", "น่าน", "พะเยา", "แพร่", "เชียงใหม่", "แม่ฮ่องสอน", "ลำปาง", "ลำพูน"},
	2:  {"ตาก", "พิษณุโลก", "เพชรบูรณ์", "สุโขทัย", "อุตรดิตถ์"},
	3:  {"ชัยนาท", "กำแพงเพชร", "พิจิตร", "นครสวรรค์", "อุทัยธานี"},
	4:  {"นนทบุรี", "ปทุมธานี", "พระนครศรีอยุธยา", "สระบุรี", "ลพบุรี", "สิงห์บุรี", "อ่างทอง", "นครนายก"},
	5:  {"กาญจนบุรี", "นครปฐม", "ราชบุรี", "สุพรรณบุรี", "ประจวบคีรีขันธ์", "เพชรบุรี", "สมุทรสงคราม", "สมุทรสาคร"},
	6:  {"ฉะเชิงเทรา", "ปราจีนบุรี", "สระแก้ว", "สมุทรปราการ", "จันทบุรี", "ชลบุรี", "ตราด", "ระยอง"},
	7:  {"กาฬสินธุ์", "ขอนแก่น", "มหาสารคาม", "ร้อยเอ็ด"},
	8:  {"บึงกาฬ", "เลย", "หนองคาย", "หนองบัวลำภู", "อุดรธานี", "นครพนม", "สกลนคร"},
	9:  {"ชัยภูมิ", "นครราชสีมา", "บุรีรัมย์", "สุรินทร์"},
	10: {"มุกดาหาร", "ยโสธร", "ศรีสะเกษ", "อุบลราชธานี", "อำนาจเจริญ"},
	11: {"ชุมพร", "นครศรีธรรมราช", "สุราษฎร์ธานี", "กระบี่", "พังงา", "ภูเก็ต", "ระนอง"},
	12: {"พัทลุง", "ตรัง", "นราธิวาส", "ปัตตานี", "ยะลา", "สงขลา", "สตูล"},
	13: {"กรุงเทพมหานคร", "Bangkok"},
}

var provinceRegion = buildProvinceRegionIndex()

func buildProvinceRegionIndex() map[string]string {
	index := make(map[string]string)
	for region, provinces := range healthRegions {
		label := fmt.Sprintf("เขตสุขภาพที่ %d", region)
		for _, p := range provinces {
			index[p] = label
		}
	}
	return index
}

// RegionFor maps a province name to its health-region label, or
// UnknownRegion when the province is not in the table.
func RegionFor(province string) string {
	if label, ok := provinceRegion[province]; ok {
		return label
	}
	return UnknownRegion
}
